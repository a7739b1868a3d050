package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rilla-project/rilla/pkg/vth"
)

// RenderHTML writes an interactive report page: the Id-Vgs transfer curve,
// and, when a temperature profile is available, the Vth-over-temperature
// trend beneath it.
func RenderHTML(w io.Writer, modelName string, res *vth.Result, profile *vth.TempProfile) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s Vth report", modelName)

	page.AddCharts(transferChart(modelName, res))
	if profile != nil && len(profile.Steps) > 0 {
		page.AddCharts(tempChart(modelName, profile))
	}
	return page.Render(w)
}

// SaveHTML renders the report page to a file.
func SaveHTML(path, modelName string, res *vth.Result, profile *vth.TempProfile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderHTML(f, modelName, res, profile); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func transferChart(modelName string, res *vth.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s transfer characteristic", modelName),
			Subtitle: fmt.Sprintf("extracted Vth = %.3f V", res.ThresholdVoltage),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Vgs (V)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Id (A)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	xs := make([]string, len(res.VoltageSamples))
	ys := make([]opts.LineData, len(res.CurrentSamples))
	for i := range res.VoltageSamples {
		xs[i] = fmt.Sprintf("%.3g", res.VoltageSamples[i])
		ys[i] = opts.LineData{Value: res.CurrentSamples[i]}
	}
	line.SetXAxis(xs).AddSeries("Id", ys,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func tempChart(modelName string, profile *vth.TempProfile) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s threshold vs temperature", modelName),
			Subtitle: fmt.Sprintf("tempco = %.2f mV/°C", profile.TempCoVPerC*1e3),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "T (°C)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vth (V)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	xs := make([]string, len(profile.Steps))
	ys := make([]opts.LineData, len(profile.Steps))
	for i, step := range profile.Steps {
		xs[i] = fmt.Sprintf("%g", step.TempC)
		ys[i] = opts.LineData{Value: step.ThresholdVoltage}
	}
	line.SetXAxis(xs).AddSeries("Vth", ys)
	return line
}
