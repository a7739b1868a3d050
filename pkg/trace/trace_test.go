package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTraceSetPreservesInsertionOrder(t *testing.T) {
	ts := NewMemTraceSet()
	ts.Add("V(v_g_d)", [][]float64{{0, 1}})
	ts.Add("Id(M1)", [][]float64{{0, 2}})
	ts.Add("V(v_g_d)", [][]float64{{0, 3}}) // replace, not duplicate

	assert.Equal(t, []string{"V(v_g_d)", "Id(M1)"}, ts.TraceNames())

	sig, ok := ts.Trace("V(v_g_d)")
	require.True(t, ok)
	wave, err := sig.Waveform(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, wave)
}

func TestMemSignalStepRange(t *testing.T) {
	sig := &MemSignal{Name: "Id(M1)", Waves: [][]float64{{1}, {2}}}
	assert.Equal(t, 2, sig.Steps())

	_, err := sig.Waveform(2)
	assert.Error(t, err)
	_, err = sig.Waveform(-1)
	assert.Error(t, err)
}

func TestTraceLookupIsExact(t *testing.T) {
	ts := NewMemTraceSet()
	ts.Add("Id(M1)", [][]float64{{0}})

	_, ok := ts.Trace("id(m1)")
	assert.False(t, ok, "case folding is the caller's concern")
}
