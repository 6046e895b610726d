package indicator

// resyncEvery controls how often the running sum is rebuilt from the circular
// buffer: once every period*resyncEvery updates. Repeated add/subtract on a
// float64 accumulator drifts over million-bar runs; rebuilding from the stored
// window bounds that drift without changing the O(1) amortized cost.
const resyncEvery = 1024

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for a zero-allocation hot path.
type SMA struct {
	period   int
	buf      []float64 // preallocated circular buffer
	idx      int       // current write position
	count    int       // total values received
	sum      float64
	current  float64
	resyncAt int // count at which the sum is next rebuilt from buf
}

// NewSMA creates a new SMA indicator with the given period. period must be >= 1.
func NewSMA(period int) *SMA {
	return &SMA{
		period:   period,
		buf:      make([]float64, period),
		resyncAt: period * resyncEvery,
	}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count == s.resyncAt {
		s.resync()
		s.resyncAt += s.period * resyncEvery
	}

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	s.current = 0
	s.resyncAt = s.period * resyncEvery
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// resync rebuilds the running sum from the circular buffer. Only ever called
// once the buffer is full, so all period slots hold live window values.
func (s *SMA) resync() {
	var sum float64
	for _, v := range s.buf {
		sum += v
	}
	s.sum = sum
}
