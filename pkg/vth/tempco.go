package vth

import (
	"gonum.org/v1/gonum/stat"

	"github.com/rilla-project/rilla/pkg/trace"
)

// StepResult is the threshold voltage extracted at one sweep step.
type StepResult struct {
	TempC            float64
	ThresholdVoltage float64
}

// TempProfile is the threshold voltage across the full temperature sweep.
type TempProfile struct {
	Steps []StepResult
	// TempCoVPerC is the slope of a least-squares linear fit of Vth versus
	// temperature, in volts per degree Celsius. Valid when len(Steps) >= 2.
	TempCoVPerC float64
}

// ExtractAllSteps runs the threshold extraction at every sweep step and fits
// the temperature coefficient. Steps whose waveforms are unavailable abort
// the profile; the per-step failure semantics match Extract.
func ExtractAllSteps(ts trace.TraceSet, p Params) (*TempProfile, error) {
	profile := &TempProfile{}

	temps := make([]float64, 0, len(p.SweepValuesC))
	vths := make([]float64, 0, len(p.SweepValuesC))

	for _, tempC := range p.SweepValuesC {
		stepParams := p
		// An exact sweep value selects its own step.
		stepParams.TargetTempC = tempC
		res, err := Extract(ts, stepParams)
		if err != nil {
			return nil, err
		}
		profile.Steps = append(profile.Steps, StepResult{TempC: tempC, ThresholdVoltage: res.ThresholdVoltage})
		temps = append(temps, tempC)
		vths = append(vths, res.ThresholdVoltage)
	}

	if len(vths) >= 2 {
		_, slope := stat.LinearRegression(temps, vths, nil, false)
		profile.TempCoVPerC = slope
	}
	return profile, nil
}
