package extraction

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	qa "mpc-plus/internal/qa/domain"
)

const linacWorkObject = "Linac"

// extractSetBeam reads machine axis positions from the first Linac control point
// of a SetBeam-*.xml file next to the results. The file is optional.
func extractSetBeam(ctx context.Context, folder string, result *Result) error {
	matches, err := filepath.Glob(filepath.Join(folder, "SetBeam*.xml"))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)
	file := matches[0]

	root, err := readTree(ctx, file)
	if err != nil {
		return err
	}
	points := root.find("ControlPoints")
	if points == nil {
		return nil
	}

	var cp *node
	for _, candidate := range points.children {
		if candidate.local() != "Cp" {
			continue
		}
		if work := candidate.child("WorkObjectID"); work != nil && work.value() == linacWorkObject {
			cp = candidate
			break
		}
	}
	if cp == nil {
		return nil
	}

	for _, field := range []struct {
		tag    string
		metric string
	}{
		{"GantryRtn", qa.MetricGantryAbsolute},
		{"CollRtn", qa.MetricCollimationRotationOffset},
		{"X1", qa.MetricJawX1},
		{"X2", qa.MetricJawX2},
		{"Y1", qa.MetricJawY1},
		{"Y2", qa.MetricJawY2},
	} {
		n := cp.child(field.tag)
		if n == nil || n.value() == "" {
			continue
		}
		value, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		result.Measurements.Set(field.metric, value)
	}

	mlc := cp.child("Mlc")
	if mlc == nil {
		return nil
	}
	for _, bank := range []struct {
		tag  string
		bank qa.LeafBank
	}{
		{"A", qa.LeafBankA},
		{"B", qa.LeafBankB},
	} {
		n := mlc.child(bank.tag)
		if n == nil {
			continue
		}
		for i, raw := range strings.Fields(n.value()) {
			position := i + 1
			if position < qa.MinLeafIndex || position > qa.MaxLeafIndex {
				continue
			}
			value, err := parseValue(file, "Mlc/"+bank.tag, raw)
			if err != nil {
				return err
			}
			if err := result.Leaves.Set(bank.bank, position, value); err != nil {
				return err
			}
		}
	}
	return nil
}
