package extraction

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	qa "mpc-plus/internal/qa/domain"
)

// Family is the beam physics family that selects an output conversion.
type Family string

const (
	FamilyPhoton   Family = "photon"
	FamilyElectron Family = "electron"
)

// Variant describes the beam a run folder was captured with.
type Variant struct {
	Name     string
	Family   Family
	Category qa.CheckCategory
}

// ShiftCapable reports whether the beam reports an isocenter shift.
func (v Variant) ShiftCapable() bool {
	return v.Family == FamilyPhoton
}

// Longest tokens first so 16e is not read as 6e and 6xfff not as 6x.
var variantTokens = []struct {
	token   string
	variant Variant
}{
	{"6xfff", Variant{Name: "6xfff", Family: FamilyPhoton, Category: qa.CategoryBeam}},
	{"2.5x", Variant{Name: "2.5x", Family: FamilyPhoton, Category: qa.CategoryBeam}},
	{"16e", Variant{Name: "16e", Family: FamilyElectron, Category: qa.CategoryBeam}},
	{"12e", Variant{Name: "12e", Family: FamilyElectron, Category: qa.CategoryBeam}},
	{"10x", Variant{Name: "10x", Family: FamilyPhoton, Category: qa.CategoryBeam}},
	{"15x", Variant{Name: "15x", Family: FamilyPhoton, Category: qa.CategoryBeam}},
	{"9e", Variant{Name: "9e", Family: FamilyElectron, Category: qa.CategoryBeam}},
	{"6e", Variant{Name: "6e", Family: FamilyElectron, Category: qa.CategoryBeam}},
	{"6x", Variant{Name: "6x", Family: FamilyPhoton, Category: qa.CategoryBeam}},
}

const geometryTemplate = "geometrychecktemplate"

var geometryVariant = Variant{Name: "6x", Family: FamilyPhoton, Category: qa.CategoryGeometry}

// DetectVariant identifies the beam from a run folder name. Only a
// GeometryCheckTemplate run with a 6x or 6xfff beam is a geometry check.
func DetectVariant(folder string) (Variant, bool) {
	name := strings.ToLower(filepath.Base(folder))
	for _, candidate := range variantTokens {
		if !strings.Contains(name, candidate.token) {
			continue
		}
		if strings.HasPrefix(candidate.token, "6x") && strings.Contains(name, geometryTemplate) {
			return geometryVariant, true
		}
		return candidate.variant, true
	}
	return Variant{}, false
}

const runTimeLayout = "2006-01-02-15-04-05"

var (
	runTimePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}`)
	serialPattern  = regexp.MustCompile(`SN(\d{4})`)
)

// ParseRunTime extracts the capture time embedded in an MPC export path.
func ParseRunTime(path string) (time.Time, bool) {
	match := runTimePattern.FindString(path)
	if match == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(runTimeLayout, match)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// ParseSerial extracts the four-digit machine serial number from a path.
func ParseSerial(path string) (string, bool) {
	match := serialPattern.FindStringSubmatch(path)
	if len(match) != 2 {
		return "", false
	}
	return match[1], true
}
