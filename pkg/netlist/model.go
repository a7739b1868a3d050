package netlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ModelCard is a parsed .model card.
type ModelCard struct {
	Name   string
	Type   string // "NMOS", "PMOS", ...
	Params map[string]float64
}

// ParseModelCard parses a ".model NAME TYPE(p1=v1 p2=v2 ...)" card. The
// parentheses are optional; parameter names are lowercased.
func ParseModelCard(card string) (*ModelCard, error) {
	fields := strings.Fields(card)
	if len(fields) < 3 || !strings.EqualFold(fields[0], ".model") {
		return nil, fmt.Errorf("not a model card: %q", card)
	}

	mc := &ModelCard{Name: fields[1], Params: make(map[string]float64)}

	rest := strings.Join(fields[2:], " ")
	if idx := strings.Index(rest, "("); idx >= 0 {
		mc.Type = strings.ToUpper(strings.TrimSpace(rest[:idx]))
		rest = rest[idx+1:]
		rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")
	} else {
		typeAndParams := strings.Fields(rest)
		mc.Type = strings.ToUpper(typeAndParams[0])
		rest = strings.Join(typeAndParams[1:], " ")
	}

	for _, pair := range strings.Fields(rest) {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		v, err := ParseValue(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("model %s: invalid parameter %s: %v", mc.Name, pair, err)
		}
		mc.Params[strings.ToLower(strings.TrimSpace(name))] = v
	}
	return mc, nil
}

// ScanModelCards extracts every .model card from a library file, folding
// continuation lines first.
func ScanModelCards(r io.Reader) ([]*ModelCard, error) {
	var cards []*ModelCard
	var current string

	flush := func() error {
		if current == "" {
			return nil
		}
		card := current
		current = ""
		if !strings.HasPrefix(strings.ToLower(card), ".model") {
			return nil
		}
		mc, err := ParseModelCard(card)
		if err != nil {
			return err
		}
		cards = append(cards, mc)
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "*"):
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "+"):
			current += " " + strings.TrimSpace(line[1:])
		default:
			if err := flush(); err != nil {
				return nil, err
			}
			current = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cards, nil
}
