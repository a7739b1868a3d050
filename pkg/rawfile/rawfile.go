// Package rawfile reads and writes SPICE raw waveform files in the LTspice
// layout: a text header describing the recorded variables followed by the
// data points, either as ASCII "Values:" rows or as a packed "Binary:" blob.
// LTspice writes UTF-16LE headers; ngspice writes plain ASCII. Both are
// handled.
package rawfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/rilla-project/rilla/pkg/trace"
)

// Variable describes one recorded signal. Index 0 is the scan variable.
type Variable struct {
	Idx  int
	Name string
	Kind string // "voltage", "device_current", ...
}

// RawData is a parsed raw file. It implements trace.TraceSet: stepped runs
// expose one waveform per sweep step, unstepped runs expose a single step.
type RawData struct {
	Title    string
	Plotname string
	Date     string
	Flags    []string

	Variables []Variable

	npoints  int
	cols     [][]float64 // per variable, npoints values
	segments [][2]int    // [start, end) point range of each sweep step
}

// New assembles a RawData from columnar data. The built-in engine uses it to
// persist runs; tests use it to build fixtures. Every column must have the
// same length. With stepped set, step boundaries are detected from resets of
// the scan variable, as when reading a file.
func New(title, plotname string, names, kinds []string, cols [][]float64, stepped bool) (*RawData, error) {
	if len(names) == 0 || len(names) != len(cols) || len(names) != len(kinds) {
		return nil, fmt.Errorf("rawfile: inconsistent variable definition: %d names, %d kinds, %d columns",
			len(names), len(kinds), len(cols))
	}
	npoints := len(cols[0])
	for i, col := range cols {
		if len(col) != npoints {
			return nil, fmt.Errorf("rawfile: column %s has %d points, want %d", names[i], len(col), npoints)
		}
	}

	r := &RawData{
		Title:    title,
		Plotname: plotname,
		Flags:    []string{"real"},
		npoints:  npoints,
		cols:     cols,
	}
	if stepped {
		r.Flags = append(r.Flags, "stepped")
	}
	for i, name := range names {
		r.Variables = append(r.Variables, Variable{Idx: i, Name: name, Kind: kinds[i]})
	}
	r.segment()
	return r, nil
}

// Stepped reports whether the run was a parametric (.step) sweep.
func (r *RawData) Stepped() bool {
	for _, f := range r.Flags {
		if strings.EqualFold(f, "stepped") {
			return true
		}
	}
	return false
}

// Steps returns the number of sweep steps.
func (r *RawData) Steps() int { return len(r.segments) }

// NumPoints returns the total number of data points across all steps.
func (r *RawData) NumPoints() int { return r.npoints }

// TraceNames lists the recorded variable names in file order.
func (r *RawData) TraceNames() []string {
	names := make([]string, len(r.Variables))
	for i, v := range r.Variables {
		names[i] = v.Name
	}
	return names
}

// Trace looks a signal up by exact name.
func (r *RawData) Trace(name string) (trace.Signal, bool) {
	for _, v := range r.Variables {
		if v.Name == name {
			return &rawSignal{raw: r, col: v.Idx}, true
		}
	}
	return nil, false
}

type rawSignal struct {
	raw *RawData
	col int
}

func (s *rawSignal) Steps() int { return s.raw.Steps() }

func (s *rawSignal) Waveform(step int) ([]float64, error) {
	if step < 0 || step >= len(s.raw.segments) {
		return nil, fmt.Errorf("step %d out of range (have %d)", step, len(s.raw.segments))
	}
	seg := s.raw.segments[step]
	return s.raw.cols[s.col][seg[0]:seg[1]:seg[1]], nil
}

// segment splits the point range into sweep steps. Each .step re-runs the
// sweep from its start value, so a step boundary shows up as the scan
// variable falling back below its predecessor.
func (r *RawData) segment() {
	r.segments = nil
	if r.npoints == 0 {
		return
	}
	if !r.Stepped() {
		r.segments = [][2]int{{0, r.npoints}}
		return
	}
	scan := r.cols[0]
	start := 0
	for i := 1; i < r.npoints; i++ {
		if scan[i] < scan[i-1] {
			r.segments = append(r.segments, [2]int{start, i})
			start = i
		}
	}
	r.segments = append(r.segments, [2]int{start, r.npoints})
}

// ReadFile parses a raw file from disk.
func ReadFile(path string) (*RawData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, nil
}

// Read parses a raw file.
func Read(rd io.Reader) (*RawData, error) {
	buf, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	sc := newHeaderScanner(buf)
	raw := &RawData{}
	nvars := 0

	for {
		line, ok := sc.nextLine()
		if !ok {
			return nil, fmt.Errorf("unexpected end of header")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "title":
			raw.Title = value
		case "date":
			raw.Date = value
		case "plotname":
			raw.Plotname = value
		case "flags":
			raw.Flags = strings.Fields(value)
		case "no. variables":
			if nvars, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("bad variable count %q", value)
			}
		case "no. points":
			if raw.npoints, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("bad point count %q", value)
			}
		case "command", "offset", "backannotation":
			// Informational, skipped.
		case "variables":
			if err := raw.readVariables(sc, nvars); err != nil {
				return nil, err
			}
		case "values":
			if err := raw.readASCIIPoints(sc); err != nil {
				return nil, err
			}
			raw.segment()
			return raw, nil
		case "binary":
			if err := raw.readBinaryPoints(buf[sc.offset:]); err != nil {
				return nil, err
			}
			raw.segment()
			return raw, nil
		default:
			return nil, fmt.Errorf("unrecognized header line %q", line)
		}
	}
}

func (r *RawData) readVariables(sc *headerScanner, nvars int) error {
	for i := 0; i < nvars; i++ {
		line, ok := sc.nextLine()
		if !ok {
			return fmt.Errorf("variable list truncated at %d of %d", i, nvars)
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("malformed variable line %q", line)
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx != i {
			return fmt.Errorf("variable line %q: expected index %d", line, i)
		}
		r.Variables = append(r.Variables, Variable{Idx: idx, Name: fields[1], Kind: fields[2]})
	}
	return nil
}

func (r *RawData) readASCIIPoints(sc *headerScanner) error {
	nvars := len(r.Variables)
	if nvars == 0 {
		return fmt.Errorf("no variables declared before data section")
	}
	r.cols = make([][]float64, nvars)
	for i := range r.cols {
		r.cols[i] = make([]float64, 0, r.npoints)
	}

	// Each point is the point index plus the scan value on one line, then one
	// value per remaining variable on the following lines.
	col := 0
	for {
		line, ok := sc.nextLine()
		if !ok {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		value := fields[len(fields)-1]
		if col == 0 && len(fields) < 2 {
			return fmt.Errorf("malformed point line %q", line)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			// Complex "re,im" pairs are not produced by DC sweeps.
			return fmt.Errorf("bad value %q: %v", value, err)
		}
		r.cols[col] = append(r.cols[col], v)
		col = (col + 1) % nvars
	}

	got := len(r.cols[0])
	if col != 0 {
		return fmt.Errorf("data section ends mid-point")
	}
	if r.npoints != 0 && got != r.npoints {
		return fmt.Errorf("point count mismatch: header says %d, data has %d", r.npoints, got)
	}
	r.npoints = got
	return nil
}

// readBinaryPoints unpacks the packed data section: per point, the scan
// variable as float64 followed by the remaining variables as float32. The
// "double" flag promotes everything to float64.
func (r *RawData) readBinaryPoints(data []byte) error {
	nvars := len(r.Variables)
	if nvars == 0 {
		return fmt.Errorf("no variables declared before data section")
	}
	allDouble := false
	for _, f := range r.Flags {
		if strings.EqualFold(f, "double") {
			allDouble = true
		}
	}

	pointSize := 8 + (nvars-1)*4
	if allDouble {
		pointSize = nvars * 8
	}
	if r.npoints == 0 {
		r.npoints = len(data) / pointSize
	}
	if len(data) < r.npoints*pointSize {
		return fmt.Errorf("binary section truncated: need %d bytes, have %d", r.npoints*pointSize, len(data))
	}

	r.cols = make([][]float64, nvars)
	for i := range r.cols {
		r.cols[i] = make([]float64, r.npoints)
	}

	off := 0
	for p := 0; p < r.npoints; p++ {
		for v := 0; v < nvars; v++ {
			if v == 0 || allDouble {
				bits := binary.LittleEndian.Uint64(data[off:])
				r.cols[v][p] = math.Float64frombits(bits)
				off += 8
			} else {
				bits := binary.LittleEndian.Uint32(data[off:])
				r.cols[v][p] = float64(math.Float32frombits(bits))
				off += 4
			}
		}
	}
	return nil
}

// WriteASCII writes the raw file in the ASCII "Values:" layout.
func (r *RawData) WriteASCII(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Title: %s\n", r.Title)
	if r.Date != "" {
		fmt.Fprintf(bw, "Date: %s\n", r.Date)
	}
	fmt.Fprintf(bw, "Plotname: %s\n", r.Plotname)
	fmt.Fprintf(bw, "Flags: %s\n", strings.Join(r.Flags, " "))
	fmt.Fprintf(bw, "No. Variables: %d\n", len(r.Variables))
	fmt.Fprintf(bw, "No. Points: %d\n", r.npoints)
	fmt.Fprintln(bw, "Variables:")
	for _, v := range r.Variables {
		fmt.Fprintf(bw, "\t%d\t%s\t%s\n", v.Idx, v.Name, v.Kind)
	}
	fmt.Fprintln(bw, "Values:")
	for p := 0; p < r.npoints; p++ {
		fmt.Fprintf(bw, "%d\t%.12e\n", p, r.cols[0][p])
		for v := 1; v < len(r.Variables); v++ {
			fmt.Fprintf(bw, "\t%.12e\n", r.cols[v][p])
		}
	}
	return bw.Flush()
}

// headerScanner yields header lines from a buffer that may be ASCII/UTF-8 or
// UTF-16LE, tracking the byte offset just past the last consumed line so the
// binary payload can be located in the original bytes.
type headerScanner struct {
	buf    []byte
	offset int
	utf16  bool
}

func newHeaderScanner(buf []byte) *headerScanner {
	sc := &headerScanner{buf: buf}
	if len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE {
		sc.utf16 = true
		sc.offset = 2
	} else if len(buf) >= 2 && buf[0] != 0 && buf[1] == 0 {
		sc.utf16 = true
	}
	return sc
}

func (sc *headerScanner) nextLine() (string, bool) {
	if sc.offset >= len(sc.buf) {
		return "", false
	}
	if !sc.utf16 {
		end := sc.offset
		for end < len(sc.buf) && sc.buf[end] != '\n' {
			end++
		}
		line := string(sc.buf[sc.offset:end])
		if end < len(sc.buf) {
			end++
		}
		sc.offset = end
		return strings.TrimRight(line, "\r"), true
	}

	var units []uint16
	off := sc.offset
	for off+1 < len(sc.buf) {
		u := binary.LittleEndian.Uint16(sc.buf[off:])
		off += 2
		if u == '\n' {
			break
		}
		units = append(units, u)
	}
	sc.offset = off
	return strings.TrimRight(string(utf16.Decode(units)), "\r"), true
}
