// Package util holds small display helpers shared by the CLI and reports.
package util

import (
	"fmt"
	"math"
)

// FormatValueFactor prints a value with an engineering prefix, e.g.
// 0.00243 V -> "2.430 mV".
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatTempC prints a Celsius temperature without trailing zeros.
func FormatTempC(tempC float64) string {
	return fmt.Sprintf("%g degC", tempC)
}
