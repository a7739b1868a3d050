// Package report renders characterization results: a machine-readable JSON
// envelope plus PNG, HTML, and PDF renderings of the measured curves.
package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rilla-project/rilla/pkg/vth"
)

// TestType tags every successful envelope.
const TestType = "vth_analysis"

// Results carries the headline numbers of a run.
type Results struct {
	VthAt25CVolts float64 `json:"vth_at_25c_volts"`
}

// Curve is the raw Id-Vgs sweep behind the extraction.
type Curve struct {
	VgsVolts []float64 `json:"vgs_volts"`
	IdAmps   []float64 `json:"id_amps"`
}

// Envelope is the JSON result document. Success and error envelopes share
// the type; the optional fields distinguish them.
type Envelope struct {
	Status       string   `json:"status"`
	TestType     string   `json:"test_type,omitempty"`
	ModelName    string   `json:"model_name"`
	Results      *Results `json:"results,omitempty"`
	RawData      *Curve   `json:"raw_data_vth_curve,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Success builds the envelope for a completed extraction.
func Success(modelName string, res *vth.Result) *Envelope {
	return &Envelope{
		Status:    "success",
		TestType:  TestType,
		ModelName: modelName,
		Results:   &Results{VthAt25CVolts: res.ThresholdVoltage},
		RawData: &Curve{
			VgsVolts: emptyIfNil(res.VoltageSamples),
			IdAmps:   emptyIfNil(res.CurrentSamples),
		},
	}
}

// Failure builds the envelope for a run that could not produce a result.
func Failure(modelName string, err error) *Envelope {
	return &Envelope{
		Status:       "error",
		ModelName:    modelName,
		ErrorMessage: err.Error(),
	}
}

// WriteJSON writes the envelope as indented JSON.
func (e *Envelope) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// SaveJSON writes the envelope to a file.
func (e *Envelope) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func emptyIfNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
