package logging

import "time"

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Latency records an operation duration under the conventional key
func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

// Component tags log lines with the emitting component name
func Component(name string) Field {
	return String("component", name)
}

// Domain field helpers

// RunID tags log lines with the sampling run identifier
func RunID(id string) Field {
	return String("run_id", id)
}

// Attempt records the attempt sequence number within a run
func Attempt(seq int64) Field {
	return Int64("attempt", seq)
}

// Coverage records a coverage fraction in [0,1]
func Coverage(fraction float64) Field {
	return Float64("coverage", fraction)
}

// NodeID tags log lines with a network node id
func NodeID(id int64) Field {
	return Int64("node_id", id)
}

// LinkID tags log lines with a network link id
func LinkID(id int64) Field {
	return Int64("link_id", id)
}
