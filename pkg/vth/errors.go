package vth

import (
	"fmt"
	"strings"
)

// TraceNotFoundError reports that a required named trace is missing from the
// trace set. Available carries every trace name the set does contain so the
// caller can show a useful diagnostic.
type TraceNotFoundError struct {
	Requested []string
	Available []string
}

func (e *TraceNotFoundError) Error() string {
	return fmt.Sprintf("trace not found: tried %s; available traces: [%s]",
		strings.Join(e.Requested, ", "), strings.Join(e.Available, ", "))
}

// WaveformUnavailableError reports that a trace exists but could not yield a
// waveform at the selected sweep step.
type WaveformUnavailableError struct {
	Trace string
	Step  int
	Err   error
}

func (e *WaveformUnavailableError) Error() string {
	return fmt.Sprintf("trace %s: no waveform at step %d: %v", e.Trace, e.Step, e.Err)
}

func (e *WaveformUnavailableError) Unwrap() error { return e.Err }
