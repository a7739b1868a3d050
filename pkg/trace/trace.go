// Package trace models simulator output: named signals sampled across one or
// more parametric sweep steps.
package trace

import "fmt"

// Signal is one recorded quantity (a node voltage or branch current).
type Signal interface {
	// Waveform returns the sampled values at the given sweep step.
	Waveform(step int) ([]float64, error)
	// Steps reports how many sweep steps the signal carries.
	Steps() int
}

// TraceSet is a queryable collection of named signals from one simulation run.
type TraceSet interface {
	// Trace looks a signal up by exact name.
	Trace(name string) (Signal, bool)
	// TraceNames lists every signal name in the set.
	TraceNames() []string
}

// MemSignal is a Signal backed by in-memory waveforms, one per sweep step.
type MemSignal struct {
	Name  string
	Waves [][]float64
}

func (s *MemSignal) Waveform(step int) ([]float64, error) {
	if step < 0 || step >= len(s.Waves) {
		return nil, fmt.Errorf("signal %s: step %d out of range (have %d)", s.Name, step, len(s.Waves))
	}
	return s.Waves[step], nil
}

func (s *MemSignal) Steps() int { return len(s.Waves) }

// MemTraceSet is an in-memory TraceSet. The built-in engine produces one, and
// tests use it as a fixture.
type MemTraceSet struct {
	names   []string
	signals map[string]*MemSignal
}

func NewMemTraceSet() *MemTraceSet {
	return &MemTraceSet{signals: make(map[string]*MemSignal)}
}

// Add registers a signal under its name, replacing any previous one.
func (ts *MemTraceSet) Add(name string, waves [][]float64) {
	if _, exists := ts.signals[name]; !exists {
		ts.names = append(ts.names, name)
	}
	ts.signals[name] = &MemSignal{Name: name, Waves: waves}
}

func (ts *MemTraceSet) Trace(name string) (Signal, bool) {
	s, ok := ts.signals[name]
	return s, ok
}

func (ts *MemTraceSet) TraceNames() []string {
	names := make([]string, len(ts.names))
	copy(names, ts.names)
	return names
}
