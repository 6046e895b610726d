package backtest

// The engine's error taxonomy. All errors are detected eagerly at the start
// of the offending call; a failed call never partially mutates engine state.
// There are no retries — every failure is deterministic and reproducible, so
// the caller's only recourse is corrected input.

// ConfigError reports invalid run parameters: non-positive or non-finite
// initial capital, or non-positive window lengths.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "backtest config: " + e.Msg
}

// DataError reports a malformed input series, e.g. non-finite prices.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string {
	return "backtest data: " + e.Msg
}

// StateError reports operations invoked out of order, e.g. running a
// strategy before any data has been loaded.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string {
	return "backtest state: " + e.Msg
}
