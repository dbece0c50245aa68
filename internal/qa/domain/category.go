package qa

import "strings"

// CheckCategory is one of the two independent measurement families.
type CheckCategory string

const (
	CategoryBeam     CheckCategory = "beam"
	CategoryGeometry CheckCategory = "geometry"
)

// IsValid returns true when the category is supported.
func (c CheckCategory) IsValid() bool {
	switch c {
	case CategoryBeam, CategoryGeometry:
		return true
	default:
		return false
	}
}

// ParseCategory normalizes a category string.
func ParseCategory(value string) (CheckCategory, error) {
	category := CheckCategory(strings.ToLower(strings.TrimSpace(value)))
	if !category.IsValid() {
		return "", ErrInvalidCategory
	}
	return category, nil
}

// Status is a pass/fail verdict.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

// MergeStatus returns the status with higher precedence (FAIL > WARNING > PASS).
func MergeStatus(a, b Status) Status {
	if statusRank(b) > statusRank(a) {
		return b
	}
	return a
}

func statusRank(status Status) int {
	switch status {
	case StatusPass:
		return 1
	case StatusWarning:
		return 2
	case StatusFail:
		return 3
	default:
		return 0
	}
}
