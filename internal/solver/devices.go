package solver

import (
	"math"

	"github.com/rilla-project/rilla/internal/consts"
)

// Status carries the operating conditions a stamp depends on.
type Status struct {
	TempK float64
	Gmin  float64
}

// device stamps its companion model into the MNA system.
type device interface {
	Stamp(m *Matrix, st *Status)
}

// nonLinear devices re-linearize around the latest solution between
// Newton-Raphson iterations.
type nonLinear interface {
	UpdateVoltages(solution []float64)
}

// VSource is an ideal DC voltage source with an MNA branch equation.
type VSource struct {
	Name      string
	NPos      int
	NNeg      int
	Value     float64
	BranchIdx int
}

func (v *VSource) Stamp(m *Matrix, st *Status) {
	if v.NPos != 0 {
		m.AddElement(v.NPos, v.BranchIdx, 1)
		m.AddElement(v.BranchIdx, v.NPos, 1)
	}
	if v.NNeg != 0 {
		m.AddElement(v.NNeg, v.BranchIdx, -1)
		m.AddElement(v.BranchIdx, v.NNeg, -1)
	}
	m.AddRHS(v.BranchIdx, v.Value)
}

// Resistor is a linear two-terminal resistor.
type Resistor struct {
	Name  string
	N1    int
	N2    int
	Value float64
}

func (r *Resistor) Stamp(m *Matrix, st *Status) {
	g := 1.0 / r.Value
	if r.N1 != 0 {
		m.AddElement(r.N1, r.N1, g)
		if r.N2 != 0 {
			m.AddElement(r.N1, r.N2, -g)
		}
	}
	if r.N2 != 0 {
		if r.N1 != 0 {
			m.AddElement(r.N2, r.N1, -g)
		}
		m.AddElement(r.N2, r.N2, g)
	}
}

// MosfetParams are the level-1 model parameters the fixture needs.
type MosfetParams struct {
	PMOS   bool
	VTO    float64 // threshold voltage (V)
	KP     float64 // transconductance parameter (A/V²)
	GAMMA  float64 // body effect (V^0.5)
	PHI    float64 // surface potential (V)
	LAMBDA float64 // channel length modulation (1/V)
	W      float64 // channel width (m)
	L      float64 // channel length (m)
	TNOM   float64 // parameter measurement temperature (K)
}

// DefaultMosfetParams mirrors the conventional level-1 defaults.
func DefaultMosfetParams() MosfetParams {
	return MosfetParams{
		VTO:    0.7,
		KP:     2e-5,
		GAMMA:  0.5,
		PHI:    0.6,
		LAMBDA: 0.01,
		W:      10e-6,
		L:      10e-6,
		TNOM:   consts.TNOM,
	}
}

// Mosfet is a level-1 (Shockley) MOSFET with first-order temperature
// dependence: VTO drifts -2 mV/K and KP scales with (T/TNOM)^-1.5, the
// classic mobility law. That is what makes the swept Vth(T) profile
// physically plausible.
type Mosfet struct {
	Name   string
	Params MosfetParams
	ND     int // drain
	NG     int // gate
	NS     int // source
	NB     int // bulk

	vgs, vds, vbs float64
	id            float64
	gm, gds, gmbs float64
	saturated     bool
	primed        bool
}

const (
	vtoTempCoeff = -2e-3 // V/K
	mosGmin      = 1e-12 // floor conductance for cutoff
)

func (m *Mosfet) vtoAt(tempK float64) float64 {
	return m.Params.VTO + vtoTempCoeff*(tempK-m.Params.TNOM)
}

func (m *Mosfet) kpAt(tempK float64) float64 {
	return m.Params.KP * math.Pow(tempK/m.Params.TNOM, -1.5)
}

// vth applies the body effect to the temperature-adjusted threshold.
func (m *Mosfet) vth(vbs, tempK float64) float64 {
	vt := m.vtoAt(tempK)
	if m.Params.GAMMA > 0 {
		vt += m.Params.GAMMA * (math.Sqrt(math.Max(0, m.Params.PHI-vbs)) - math.Sqrt(m.Params.PHI))
	}
	return vt
}

// evaluate computes drain current and small-signal conductances at the
// present terminal voltages.
func (m *Mosfet) evaluate(st *Status) {
	sign := 1.0
	vgs, vds, vbs := m.vgs, m.vds, m.vbs
	if m.Params.PMOS {
		sign = -1.0
		vgs, vds, vbs = -vgs, -vds, -vbs
	}

	vth := m.vth(vbs, st.TempK)
	vgst := vgs - vth
	beta := m.kpAt(st.TempK) * m.Params.W / m.Params.L
	lambda := m.Params.LAMBDA

	if vgst <= 0 {
		// Cutoff
		m.id = 0
		m.gm = mosGmin
		m.gds = mosGmin
		m.gmbs = mosGmin
		m.saturated = false
		return
	}

	if vds < vgst {
		// Linear region
		m.id = sign * beta * (vgst*vds - 0.5*vds*vds) * (1 + lambda*vds)
		m.gm = beta * vds * (1 + lambda*vds)
		m.gds = beta*(vgst-vds)*(1+lambda*vds) + beta*lambda*(vgst*vds-0.5*vds*vds)
		m.saturated = false
	} else {
		// Saturation region
		m.id = sign * 0.5 * beta * vgst * vgst * (1 + lambda*vds)
		m.gm = beta * vgst * (1 + lambda*vds)
		m.gds = 0.5 * beta * vgst * vgst * lambda
		m.saturated = true
	}

	if m.Params.GAMMA > 0 && vbs < 0 {
		m.gmbs = m.gm * m.Params.GAMMA / (2 * math.Sqrt(m.Params.PHI-vbs))
	} else {
		m.gmbs = mosGmin
	}

	m.gm *= sign
	m.gmbs *= sign
}

func (m *Mosfet) Stamp(mat *Matrix, st *Status) {
	if !m.primed {
		// Seed the first Newton iteration with a plausible bias.
		if m.Params.PMOS {
			m.vgs, m.vds = -0.7, -0.1
		} else {
			m.vgs, m.vds = 0.7, 0.1
		}
		m.primed = true
	}

	m.evaluate(st)

	nd, ng, ns, nb := m.ND, m.NG, m.NS, m.NB
	gmin := st.Gmin

	if nd != 0 {
		mat.AddElement(nd, nd, m.gds+gmin)
		if ng != 0 {
			mat.AddElement(nd, ng, m.gm)
		}
		if ns != 0 {
			mat.AddElement(nd, ns, -m.gds-m.gm-m.gmbs)
		}
		if nb != 0 {
			mat.AddElement(nd, nb, m.gmbs)
		}
		mat.AddRHS(nd, -m.id+m.gds*m.vds+m.gm*m.vgs+m.gmbs*m.vbs)
	}

	if ns != 0 {
		mat.AddElement(ns, ns, m.gds+m.gm+m.gmbs+gmin)
		if nd != 0 {
			mat.AddElement(ns, nd, -m.gds)
		}
		if ng != 0 {
			mat.AddElement(ns, ng, -m.gm)
		}
		if nb != 0 {
			mat.AddElement(ns, nb, -m.gmbs)
		}
		mat.AddRHS(ns, m.id-m.gds*m.vds-m.gm*m.vgs-m.gmbs*m.vbs)
	}
}

func (m *Mosfet) UpdateVoltages(solution []float64) {
	nodeVoltage := func(n int) float64 {
		if n <= 0 || n >= len(solution) {
			return 0
		}
		return solution[n]
	}
	vd := nodeVoltage(m.ND)
	vg := nodeVoltage(m.NG)
	vs := nodeVoltage(m.NS)
	vb := nodeVoltage(m.NB)

	m.vgs = vg - vs
	m.vds = vd - vs
	m.vbs = vb - vs
}

// DrainCurrent returns the drain current from the last evaluation.
func (m *Mosfet) DrainCurrent() float64 { return m.id }
