package extraction

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	qa "mpc-plus/internal/qa/domain"
)

const (
	csvNameColumn  = "Name [Unit]"
	csvValueColumn = "Value"
)

type csvLeafRule struct {
	prefix string
	marker string
	bank   qa.LeafBank
}

// Leaf rows are checked before scalar rows.
var csvLeafRules = []csvLeafRule{
	{prefix: "MLCLeavesA/MLCLeaf", marker: "MLCLeaf", bank: qa.LeafBankA},
	{prefix: "MLCLeavesB/MLCLeaf", marker: "MLCLeaf", bank: qa.LeafBankB},
	{prefix: "MLCBacklashLeavesA/MLCBacklashLeaf", marker: "MLCBacklashLeaf", bank: qa.LeafBankBacklashA},
	{prefix: "MLCBacklashLeavesB/MLCBacklashLeaf", marker: "MLCBacklashLeaf", bank: qa.LeafBankBacklashB},
}

// Scalar rows matched by substring, in the order the instrument groups them.
var csvScalarRules = []struct {
	contains string
	metric   string
}{
	{"IsoCenterSize", qa.MetricIsoCenterSize},
	{"IsoCenterMVOffset", qa.MetricIsoCenterMVOffset},
	{"IsoCenterKVOffset", qa.MetricIsoCenterKVOffset},
	{"BeamOutputChange", qa.MetricRelativeOutput},
	{"BeamUniformityChange", qa.MetricRelativeUniformity},
	{"BeamCenterShift", qa.MetricCenterShift},
	{"CollimationRotationOffset", qa.MetricCollimationRotationOffset},
	{"GantryAbsolute", qa.MetricGantryAbsolute},
	{"GantryRelative", qa.MetricGantryRelative},
	{"CouchMaxPositionError", qa.MetricCouchMaxPositionError},
	{"CouchLat", qa.MetricCouchLat},
	{"CouchLng", qa.MetricCouchLng},
	{"CouchVrt", qa.MetricCouchVrt},
	{"CouchRtnFine", qa.MetricCouchRtnFine},
	{"CouchRtnLarge", qa.MetricCouchRtnLarge},
	{"RotationInducedCouchShiftFullRange", qa.MetricRotationInducedCouchShiftFullRange},
	{"MLCBacklashMaxA", qa.MetricMLCBacklashMaxA},
	{"MLCBacklashMaxB", qa.MetricMLCBacklashMaxB},
	{"MLCBacklashMeanA", qa.MetricMLCBacklashMeanA},
	{"MLCBacklashMeanB", qa.MetricMLCBacklashMeanB},
	{"MaxOffsetA", qa.MetricMaxOffsetA},
	{"MaxOffsetB", qa.MetricMaxOffsetB},
	{"MeanOffsetA", qa.MetricMeanOffsetA},
	{"MeanOffsetB", qa.MetricMeanOffsetB},
	{"JawParallelismX1", qa.MetricJawParallelismX1},
	{"JawParallelismX2", qa.MetricJawParallelismX2},
	{"JawParallelismY1", qa.MetricJawParallelismY1},
	{"JawParallelismY2", qa.MetricJawParallelismY2},
	{"JawX1", qa.MetricJawX1},
	{"JawX2", qa.MetricJawX2},
	{"JawY1", qa.MetricJawY1},
	{"JawY2", qa.MetricJawY2},
}

// extractCSV reads the tabular export. Values are already deviations and are kept as reported.
func (e *Extractor) extractCSV(ctx context.Context, file string, result *Result) error {
	f, err := os.Open(file)
	if err != nil {
		return newError(CodeSourceNotFound, file, "", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return newError(CodeMalformedSource, file, "", errors.New("empty file"))
		}
		return err
	}
	nameIdx, valueIdx := -1, -1
	for i, column := range header {
		switch strings.TrimSpace(strings.TrimPrefix(column, "\ufeff")) {
		case csvNameColumn:
			nameIdx = i
		case csvValueColumn:
			valueIdx = i
		}
	}
	if nameIdx < 0 || valueIdx < 0 {
		return newError(CodeMalformedSource, file, "", errors.New("missing Name [Unit] or Value column"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if nameIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		raw := strings.TrimSpace(row[valueIdx])
		if name == "" || raw == "" {
			continue
		}
		if err := e.applyCSVRow(file, name, raw, result); err != nil {
			return err
		}
	}

	for _, metric := range e.requiredMetrics(result.Variant) {
		if _, ok := result.Measurements[metric]; ok {
			continue
		}
		if err := e.missing(result, file, metric); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) applyCSVRow(file, name, raw string, result *Result) error {
	for _, rule := range csvLeafRules {
		if !strings.Contains(name, rule.prefix) {
			continue
		}
		index, ok := leafPosition(name, rule.marker)
		if !ok {
			e.logger.Debug("csv leaf row without position", zap.String("name", name))
			return nil
		}
		value, err := parseValue(file, name, raw)
		if err != nil {
			return err
		}
		if err := result.Leaves.Set(rule.bank, index, value); err != nil {
			e.logger.Debug("csv leaf row skipped", zap.String("name", name), zap.Error(err))
		}
		return nil
	}

	for _, rule := range csvScalarRules {
		if !strings.Contains(name, rule.contains) {
			continue
		}
		value, err := parseValue(file, name, raw)
		if err != nil {
			return err
		}
		result.Measurements.Set(rule.metric, value)
		return nil
	}
	return nil
}

// leafPosition reads the number following marker, e.g. "MLCLeaf23 [mm]" -> 23.
func leafPosition(name, marker string) (int, bool) {
	idx := strings.LastIndex(name, marker)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(name[idx+len(marker):])
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
