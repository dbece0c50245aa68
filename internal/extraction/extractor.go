package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	qa "mpc-plus/internal/qa/domain"
)

// File names produced by the instrument for one run.
const (
	ResultsXML = "Results.xml"
	ResultsCSV = "Results.csv"
)

// MissingNodePolicy decides what happens when a required value is absent.
type MissingNodePolicy string

const (
	// MissingNodeFatal fails the extraction.
	MissingNodeFatal MissingNodePolicy = "fatal"
	// MissingNodeNull records the metric with no value.
	MissingNodeNull MissingNodePolicy = "null"
)

// ParseMissingNodePolicy validates a configured policy; empty means fatal.
func ParseMissingNodePolicy(value string) (MissingNodePolicy, error) {
	switch MissingNodePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MissingNodeFatal:
		return MissingNodeFatal, nil
	case MissingNodeNull:
		return MissingNodeNull, nil
	default:
		return "", fmt.Errorf("extraction: unknown missing node policy %q", value)
	}
}

// Result is the measurement set of one run. It is only returned complete.
type Result struct {
	Variant      Variant
	RunTime      time.Time
	Serial       string
	SourceFile   string
	Measurements qa.Measurements
	Leaves       qa.Leaves
}

// Empty reports a document that produced no measurements at all.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Measurements) == 0 && len(r.Leaves) == 0)
}

// Extractor turns raw instrument output into measurements.
type Extractor struct {
	policy     MissingNodePolicy
	strategies StrategyMapping
	logger     *zap.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithMissingNodePolicy sets the policy for absent required nodes.
func WithMissingNodePolicy(policy MissingNodePolicy) Option {
	return func(e *Extractor) {
		if policy != "" {
			e.policy = policy
		}
	}
}

// WithStrategies overrides the output conversion per beam family.
func WithStrategies(mapping StrategyMapping) Option {
	return func(e *Extractor) {
		if mapping != nil {
			e.strategies = mapping
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor constructs an extractor with fatal missing-node handling by default.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		policy:     MissingNodeFatal,
		strategies: DefaultStrategies(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy != MissingNodeFatal && e.policy != MissingNodeNull {
		return nil, fmt.Errorf("extraction: unknown missing node policy %q", e.policy)
	}
	if err := e.strategies.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Extract reads a run folder (or a Results file inside one) and returns its measurements.
func (e *Extractor) Extract(ctx context.Context, source string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(CodeCancelled, source, "", err)
	}

	file, err := resolveSource(source)
	if err != nil {
		return nil, err
	}
	folder := filepath.Dir(file)

	variant, ok := DetectVariant(folder)
	if !ok {
		return nil, newError(CodeUnknownVariant, folder, "", nil)
	}

	result := &Result{
		Variant:      variant,
		SourceFile:   file,
		Measurements: make(qa.Measurements),
		Leaves:       make(qa.Leaves),
	}
	if runTime, ok := ParseRunTime(folder); ok {
		result.RunTime = runTime
	} else if info, err := os.Stat(file); err == nil {
		result.RunTime = info.ModTime().UTC()
	}
	result.Serial, _ = ParseSerial(folder)

	if strings.EqualFold(filepath.Ext(file), ".csv") {
		err = e.extractCSV(ctx, file, result)
	} else {
		err = e.extractXML(ctx, file, result)
	}
	if err != nil {
		var extractionErr *ExtractionError
		if errors.As(err, &extractionErr) {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(CodeCancelled, file, "", err)
		}
		return nil, newError(CodeMalformedSource, file, "", err)
	}

	e.logger.Debug("extraction completed",
		zap.String("file", file),
		zap.String("variant", variant.Name),
		zap.Int("measurements", len(result.Measurements)),
	)
	return result, nil
}

// resolveSource returns the results file for a folder or file path.
func resolveSource(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", newError(CodeSourceNotFound, source, "", err)
	}
	if !info.IsDir() {
		return source, nil
	}
	for _, name := range []string{ResultsXML, ResultsCSV} {
		candidate := filepath.Join(source, name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", newError(CodeSourceNotFound, source, ResultsXML, nil)
}

// missing applies the missing-node policy for a required metric.
func (e *Extractor) missing(result *Result, file, metric string) error {
	if e.policy == MissingNodeNull {
		result.Measurements.SetNull(metric)
		return nil
	}
	return newError(CodeMissingNode, file, metric, nil)
}

func (e *Extractor) requiredMetrics(variant Variant) []string {
	required := []string{qa.MetricRelativeOutput, qa.MetricRelativeUniformity}
	if variant.ShiftCapable() {
		required = append(required, qa.MetricCenterShift)
	}
	return required
}
