package extraction

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	qa "mpc-plus/internal/qa/domain"
)

// Couch rotations at or beyond a full turn are reported on the large scale.
const couchFineLimit = 360

func (e *Extractor) extractXML(ctx context.Context, file string, result *Result) error {
	root, err := readTree(ctx, file)
	if err != nil {
		return err
	}

	profile := root.findByType("BeamProfileCheck")
	if profile == nil {
		profile = root
	}

	if n := profile.find("RelativeOutput"); n != nil {
		raw, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		result.Measurements.Set(qa.MetricRelativeOutput, e.strategies[result.Variant.Family].Convert(raw))
	}
	if n := profile.find("RelativeUniformity"); n != nil {
		raw, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		result.Measurements.Set(qa.MetricRelativeUniformity, raw*100)
	}
	if result.Variant.ShiftCapable() {
		if err := extractCenterShift(file, root, profile, result); err != nil {
			return err
		}
	}
	if result.Variant.Category == qa.CategoryGeometry {
		if err := extractCouch(file, root, result); err != nil {
			return err
		}
		if err := extractSetBeam(ctx, filepath.Dir(file), result); err != nil {
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

// extractCenterShift computes the isocenter displacement in mm from cm coordinates.
// A reported BeamCenterShift is used when the isocenter nodes are absent.
func extractCenterShift(file string, root, profile *node, result *Result) error {
	scope := root.findByType("JawEdgeCheck")
	if scope == nil {
		scope = root
	}
	baseline := scope.find("BaselineIsoCenter")
	measured := scope.find("IsoCenter")
	if baseline != nil && measured != nil {
		bx, by, err := parsePoint(file, baseline)
		if err != nil {
			return err
		}
		mx, my, err := parsePoint(file, measured)
		if err != nil {
			return err
		}
		result.Measurements.Set(qa.MetricCenterShift, CenterShiftMM(bx, by, mx, my))
		return nil
	}
	if n := profile.find("BeamCenterShift"); n != nil {
		value, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		result.Measurements.Set(qa.MetricCenterShift, value)
	}
	return nil
}

// CenterShiftMM returns the Euclidean distance between two cm positions, in mm.
func CenterShiftMM(baselineX, baselineY, measuredX, measuredY float64) float64 {
	return math.Hypot(measuredX-baselineX, measuredY-baselineY) * 10
}

func extractCouch(file string, root *node, result *Result) error {
	couch := root.find("CouchReference")
	if couch == nil {
		return nil
	}
	for _, field := range []struct {
		tag    string
		metric string
	}{
		{"CouchLat", qa.MetricCouchLat},
		{"CouchLng", qa.MetricCouchLng},
		{"CouchVrt", qa.MetricCouchVrt},
	} {
		n := couch.child(field.tag)
		if n == nil {
			continue
		}
		value, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		result.Measurements.Set(field.metric, value)
	}
	if n := couch.child("CouchRtn"); n != nil {
		value, err := parseNumber(file, n)
		if err != nil {
			return err
		}
		if math.Abs(value) < couchFineLimit {
			result.Measurements.Set(qa.MetricCouchRtnFine, value)
		} else {
			result.Measurements.Set(qa.MetricCouchRtnLarge, value)
		}
	}
	return nil
}

func readTree(ctx context.Context, file string) (*node, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, newError(CodeSourceNotFound, file, "", err)
	}
	defer f.Close()
	return parseTree(ctx, f)
}

func parsePoint(file string, n *node) (float64, float64, error) {
	xNode := n.child("X")
	if xNode == nil {
		return 0, 0, newError(CodeMissingNode, file, n.local()+"/X", nil)
	}
	yNode := n.child("Y")
	if yNode == nil {
		return 0, 0, newError(CodeMissingNode, file, n.local()+"/Y", nil)
	}
	x, err := parseNumber(file, xNode)
	if err != nil {
		return 0, 0, err
	}
	y, err := parseNumber(file, yNode)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func parseNumber(file string, n *node) (float64, error) {
	return parseValue(file, n.local(), n.value())
}

func parseValue(file, name, raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, newError(CodeInvalidNumber, file, name, err)
	}
	return value, nil
}
