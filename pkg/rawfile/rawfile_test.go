package rawfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiRaw = `Title: * vth fixture
Date: Sat Aug 30 12:00:00 2025
Plotname: DC transfer characteristic
Flags: real
No. Variables: 3
No. Points: 3
Variables:
	0	v-sweep	voltage
	1	V(v_g_d)	voltage
	2	Id(M1)	device_current
Values:
0	0.000000000000e+00
	0.000000000000e+00
	1.000000000000e-06
1	1.000000000000e+00
	1.000000000000e+00
	2.000000000000e-06
2	2.000000000000e+00
	2.000000000000e+00
	3.000000000000e-06
`

func TestReadASCII(t *testing.T) {
	raw, err := Read(strings.NewReader(asciiRaw))
	require.NoError(t, err)

	assert.Equal(t, "* vth fixture", raw.Title)
	assert.Equal(t, "DC transfer characteristic", raw.Plotname)
	assert.False(t, raw.Stepped())
	assert.Equal(t, 1, raw.Steps())
	assert.Equal(t, 3, raw.NumPoints())
	assert.Equal(t, []string{"v-sweep", "V(v_g_d)", "Id(M1)"}, raw.TraceNames())

	sig, ok := raw.Trace("Id(M1)")
	require.True(t, ok)
	wave, err := sig.Waveform(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1e-6, 2e-6, 3e-6}, wave, 1e-18)

	_, err = sig.Waveform(1)
	assert.Error(t, err)

	_, ok = raw.Trace("V(nope)")
	assert.False(t, ok)
}

func TestReadASCIIPointCountMismatch(t *testing.T) {
	bad := strings.Replace(asciiRaw, "No. Points: 3", "No. Points: 5", 1)
	_, err := Read(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "point count mismatch")
}

// buildBinaryRaw packs a two-step DC sweep the way LTspice does: scan
// variable as float64, everything else as float32.
func buildBinaryRaw(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	fmt.Fprintf(&b, "Title: * stepped fixture\n")
	fmt.Fprintf(&b, "Plotname: DC transfer characteristic\n")
	fmt.Fprintf(&b, "Flags: real stepped\n")
	fmt.Fprintf(&b, "No. Variables: 2\n")
	fmt.Fprintf(&b, "No. Points: 6\n")
	fmt.Fprintf(&b, "Variables:\n")
	fmt.Fprintf(&b, "\t0\tv-sweep\tvoltage\n")
	fmt.Fprintf(&b, "\t1\tIx(xu1:D)\tdevice_current\n")
	fmt.Fprintf(&b, "Binary:\n")

	scan := []float64{0, 1, 2, 0, 1, 2}
	current := []float32{1, 2, 3, 10, 20, 30}
	for i := range scan {
		var p [8]byte
		binary.LittleEndian.PutUint64(p[:], math.Float64bits(scan[i]))
		b.Write(p[:])
		var q [4]byte
		binary.LittleEndian.PutUint32(q[:], math.Float32bits(current[i]))
		b.Write(q[:])
	}
	return b.Bytes()
}

func TestReadBinarySteppedSplitsOnScanReset(t *testing.T) {
	raw, err := Read(bytes.NewReader(buildBinaryRaw(t)))
	require.NoError(t, err)

	assert.True(t, raw.Stepped())
	require.Equal(t, 2, raw.Steps())

	sig, ok := raw.Trace("Ix(xu1:D)")
	require.True(t, ok)

	first, err := sig.Waveform(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, first, 1e-6)

	second, err := sig.Waveform(1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 20, 30}, second, 1e-6)
}

func TestReadUTF16Header(t *testing.T) {
	units := utf16.Encode([]rune(asciiRaw))
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xFE})
	for _, u := range units {
		var p [2]byte
		binary.LittleEndian.PutUint16(p[:], u)
		b.Write(p[:])
	}

	raw, err := Read(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "* vth fixture", raw.Title)
	assert.Equal(t, 3, raw.NumPoints())
}

func TestWriteASCIIRoundTrip(t *testing.T) {
	cols := [][]float64{
		{0, 1, 2, 0, 1, 2},
		{0.5, 1.5, 2.5, 0.6, 1.6, 2.6},
	}
	raw, err := New("fixture", "DC transfer characteristic",
		[]string{"v-sweep", "V(v_g_d)"}, []string{"voltage", "voltage"}, cols, true)
	require.NoError(t, err)
	require.Equal(t, 2, raw.Steps())

	var buf bytes.Buffer
	require.NoError(t, raw.WriteASCII(&buf))

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Steps())

	sig, ok := again.Trace("V(v_g_d)")
	require.True(t, ok)
	wave, err := sig.Waveform(1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 1.6, 2.6}, wave, 1e-9)
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New("x", "y", []string{"a", "b"}, []string{"voltage", "voltage"},
		[][]float64{{1, 2}, {1}}, false)
	assert.Error(t, err)
}
