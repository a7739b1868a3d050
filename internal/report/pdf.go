package report

import (
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rilla-project/rilla/pkg/vth"
)

// SavePDF writes a one-page datasheet-style summary. pngPath, when non-empty,
// names a previously rendered transfer-curve image to embed.
func SavePDF(path, modelName string, res *vth.Result, profile *vth.TempProfile, pngPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s Vth report", modelName), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Threshold Voltage Characterization", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Model: %s", modelName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Results", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Vth @ 25 C, Id = 1 mA: %.3f V", res.ThresholdVoltage), "", 1, "L", false, 0, "")
	if profile != nil && len(profile.Steps) > 1 {
		pdf.CellFormat(0, 7, fmt.Sprintf("Temperature coefficient: %.2f mV/C over %g to %g C",
			profile.TempCoVPerC*1e3, profile.Steps[0].TempC, profile.Steps[len(profile.Steps)-1].TempC),
			"", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if pngPath != "" {
		pdf.ImageOptions(pngPath, 15, pdf.GetY(), 180, 0, false,
			gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing PDF report: %w", err)
	}
	return nil
}
