package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rilla-project/rilla/pkg/vth"
)

var (
	curveColor     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	thresholdColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// SavePNG renders the Id-Vgs transfer curve with the extracted threshold
// marked by a dashed vertical line.
func SavePNG(path, modelName string, res *vth.Result) error {
	if len(res.VoltageSamples) == 0 || len(res.VoltageSamples) != len(res.CurrentSamples) {
		return fmt.Errorf("cannot plot %s: curve has %d voltage and %d current samples",
			modelName, len(res.VoltageSamples), len(res.CurrentSamples))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s transfer characteristic", modelName)
	p.X.Label.Text = "Vgs (V)"
	p.Y.Label.Text = "Id (A)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(res.VoltageSamples))
	maxI := res.CurrentSamples[0]
	for i := range pts {
		pts[i].X = res.VoltageSamples[i]
		pts[i].Y = res.CurrentSamples[i]
		if res.CurrentSamples[i] > maxI {
			maxI = res.CurrentSamples[i]
		}
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building curve: %w", err)
	}
	curve.Color = curveColor
	curve.Width = vg.Points(1.5)
	p.Add(curve)
	p.Legend.Add("Id(Vgs)", curve)

	marker, err := plotter.NewLine(plotter.XYs{
		{X: res.ThresholdVoltage, Y: 0},
		{X: res.ThresholdVoltage, Y: maxI},
	})
	if err != nil {
		return fmt.Errorf("building threshold marker: %w", err)
	}
	marker.Color = thresholdColor
	marker.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(marker)
	p.Legend.Add(fmt.Sprintf("Vth = %.3f V", res.ThresholdVoltage), marker)
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
