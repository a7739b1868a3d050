// Package netlist edits SPICE netlist decks: the characterization fixture is
// kept as a template and specialized per device model before each run.
package netlist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Deck is a parsed netlist. The title line and card order are preserved so
// the rendered deck stays diffable against its template.
type Deck struct {
	Title string
	cards []string
}

// ParseDeck reads a netlist template. Continuation lines (leading "+") are
// folded into their parent card; comments ("*") and blank lines are dropped.
func ParseDeck(src string) (*Deck, error) {
	d := &Deck{}
	scanner := bufio.NewScanner(strings.NewReader(src))

	first := true
	var current string
	flush := func() {
		if current != "" {
			d.cards = append(d.cards, current)
			current = ""
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if first {
			d.Title = strings.TrimSpace(strings.TrimPrefix(line, "*"))
			first = false
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "*"):
			flush()
		case strings.HasPrefix(trimmed, "+"):
			if current == "" {
				return nil, fmt.Errorf("continuation line with no preceding card: %q", line)
			}
			current += " " + strings.TrimSpace(trimmed[1:])
		default:
			flush()
			current = trimmed
		}
	}
	flush()

	if d.Title == "" && len(d.cards) == 0 {
		return nil, fmt.Errorf("empty netlist")
	}
	return d, nil
}

// Cards returns the deck's cards in order.
func (d *Deck) Cards() []string {
	out := make([]string, len(d.cards))
	copy(out, d.cards)
	return out
}

// SetSubcktModel replaces the model (last token) of the subcircuit instance
// card named ref, matched case-insensitively.
func (d *Deck) SetSubcktModel(ref, model string) error {
	return d.setLastToken(ref, model)
}

// SetSourceValue replaces the value (last token) of the source card named
// ref, matched case-insensitively.
func (d *Deck) SetSourceValue(ref string, value float64) error {
	return d.setLastToken(ref, strconv.FormatFloat(value, 'g', -1, 64))
}

func (d *Deck) setLastToken(ref, token string) error {
	for i, card := range d.cards {
		fields := strings.Fields(card)
		if len(fields) < 2 || !strings.EqualFold(fields[0], ref) {
			continue
		}
		fields[len(fields)-1] = token
		d.cards[i] = strings.Join(fields, " ")
		return nil
	}
	return fmt.Errorf("no card named %s in deck", ref)
}

// AddInstructions appends control cards, keeping any .end card last.
func (d *Deck) AddInstructions(lines ...string) {
	endIdx := -1
	for i, card := range d.cards {
		if strings.EqualFold(strings.Fields(card)[0], ".end") {
			endIdx = i
			break
		}
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if endIdx < 0 {
			d.cards = append(d.cards, line)
			continue
		}
		d.cards = append(d.cards[:endIdx], append([]string{line}, d.cards[endIdx:]...)...)
		endIdx++
	}
}

// Render writes the deck back out as netlist text.
func (d *Deck) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "* %s\n", d.Title)
	for _, card := range d.cards {
		b.WriteString(card)
		b.WriteByte('\n')
	}
	return b.String()
}

// SubcktName returns the name of the first .subckt definition in a model
// library. Device vendors ship power MOSFETs as subcircuits, so this is how
// a registered .lib file gets its model name.
func SubcktName(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && strings.EqualFold(fields[0], ".subckt") {
			return fields[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no .subckt definition found")
}
