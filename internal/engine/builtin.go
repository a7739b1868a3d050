package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rilla-project/rilla/internal/monitoring"
	"github.com/rilla-project/rilla/internal/solver"
	"github.com/rilla-project/rilla/pkg/netlist"
)

// Builtin characterizes a device with the in-process sparse-MNA solver. It
// reads level-1 .model cards from the library file; subcircuit-wrapped vendor
// models need the external backend.
type Builtin struct{}

func NewBuiltin() *Builtin { return &Builtin{} }

func (b *Builtin) Name() string { return "builtin" }

func (b *Builtin) RunVth(ctx context.Context, model Model, opts Options) (*Run, error) {
	params, err := b.modelParams(model)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sweep := solver.SweepOptions{
		GateStart: opts.GateStart,
		GateStop:  opts.GateStop,
		GateStep:  opts.GateStep,
		DrainV:    opts.DrainV,
		TempsC:    opts.SweepTemps(),
	}
	monitoring.Logf("builtin engine: sweeping %s over %d temperature steps", model.Name, len(sweep.TempsC))

	res, err := solver.RunVthSweep(params, sweep)
	if err != nil {
		return nil, fmt.Errorf("builtin solve for %s: %w", model.Name, err)
	}
	return &Run{
		Traces:      res.TraceSet(),
		SweepTempsC: res.TempsC,
	}, nil
}

// modelParams loads the .model card for model.Name from its library file. An
// empty path selects the generic defaults, which is enough for smoke runs.
func (b *Builtin) modelParams(model Model) (solver.MosfetParams, error) {
	params := solver.DefaultMosfetParams()
	if model.Path == "" {
		return params, nil
	}

	f, err := os.Open(model.Path)
	if err != nil {
		return params, fmt.Errorf("opening model library: %w", err)
	}
	defer f.Close()

	cards, err := netlist.ScanModelCards(f)
	if err != nil {
		return params, fmt.Errorf("scanning %s: %w", model.Path, err)
	}

	var card *netlist.ModelCard
	for _, mc := range cards {
		if !isMosType(mc.Type) {
			continue
		}
		if strings.EqualFold(mc.Name, model.Name) {
			card = mc
			break
		}
		if card == nil {
			card = mc
		}
	}
	if card == nil {
		return params, fmt.Errorf("no MOSFET .model card in %s; subcircuit models need the external engine", model.Path)
	}

	params.PMOS = strings.EqualFold(card.Type, "PMOS")
	assign := func(key string, dst *float64) {
		if v, ok := card.Params[key]; ok {
			*dst = v
		}
	}
	assign("vto", &params.VTO)
	assign("kp", &params.KP)
	assign("gamma", &params.GAMMA)
	assign("phi", &params.PHI)
	assign("lambda", &params.LAMBDA)
	assign("w", &params.W)
	assign("l", &params.L)
	if tnomC, ok := card.Params["tnom"]; ok {
		params.TNOM = tnomC + 273.15
	}
	return params, nil
}

func isMosType(t string) bool {
	return strings.EqualFold(t, "NMOS") || strings.EqualFold(t, "PMOS")
}
