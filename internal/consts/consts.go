package consts

const (
	KELVIN = 273.15        // 0°C in Kelvin
	TNOM   = 27.0 + KELVIN // default parameter measurement temperature (K)
)
