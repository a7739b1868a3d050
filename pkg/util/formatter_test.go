package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactor(t *testing.T) {
	assert.Equal(t, "2.430 V", FormatValueFactor(2.43, "V"))
	assert.Equal(t, "-2.000 mV", FormatValueFactor(-2e-3, "V"))
	assert.Equal(t, "1.000 uA", FormatValueFactor(1e-6, "A"))
	assert.Equal(t, "12.500 nA", FormatValueFactor(1.25e-8, "A"))
	assert.Equal(t, "3.300 pA", FormatValueFactor(3.3e-12, "A"))
}

func TestFormatTempC(t *testing.T) {
	assert.Equal(t, "-55 degC", FormatTempC(-55))
	assert.Equal(t, "25 degC", FormatTempC(25.0))
}
