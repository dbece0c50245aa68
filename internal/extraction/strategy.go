package extraction

import (
	"errors"
	"fmt"
)

// OutputStrategy converts a raw relative output ratio into a reported value.
type OutputStrategy interface {
	Name() string
	Convert(raw float64) float64
}

// Strategy names accepted in configuration.
const (
	StrategyPercentDeviation = "percent-deviation"
	StrategyDoubleScaled     = "double-scaled"
)

type percentDeviation struct{}

func (percentDeviation) Name() string { return StrategyPercentDeviation }

// Convert returns (raw - 1) * 100.
func (percentDeviation) Convert(raw float64) float64 { return (raw - 1) * 100 }

// doubleScaled reproduces the electron path of one legacy extractor.
type doubleScaled struct{}

func (doubleScaled) Name() string { return StrategyDoubleScaled }

// Convert returns ((raw - 1) * 100) * 100.
func (doubleScaled) Convert(raw float64) float64 { return ((raw - 1) * 100) * 100 }

// ErrUnknownStrategy is returned for unsupported strategy names.
var ErrUnknownStrategy = errors.New("extraction: unknown output strategy")

// LookupStrategy returns the strategy registered under name.
func LookupStrategy(name string) (OutputStrategy, error) {
	switch name {
	case StrategyPercentDeviation:
		return percentDeviation{}, nil
	case StrategyDoubleScaled:
		return doubleScaled{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// StrategyMapping selects an output strategy per beam family.
type StrategyMapping map[Family]OutputStrategy

// DefaultStrategies maps both families to percent deviation.
func DefaultStrategies() StrategyMapping {
	return StrategyMapping{
		FamilyPhoton:   percentDeviation{},
		FamilyElectron: percentDeviation{},
	}
}

// StrategiesFromNames builds a mapping from configuration, starting from the defaults.
func StrategiesFromNames(names map[string]string) (StrategyMapping, error) {
	mapping := DefaultStrategies()
	for family, name := range names {
		f := Family(family)
		if f != FamilyPhoton && f != FamilyElectron {
			return nil, fmt.Errorf("extraction: unknown beam family %q", family)
		}
		strategy, err := LookupStrategy(name)
		if err != nil {
			return nil, err
		}
		mapping[f] = strategy
	}
	return mapping, nil
}

func (m StrategyMapping) validate() error {
	for _, family := range []Family{FamilyPhoton, FamilyElectron} {
		if m[family] == nil {
			return fmt.Errorf("extraction: no output strategy for %s beams", family)
		}
	}
	return nil
}
