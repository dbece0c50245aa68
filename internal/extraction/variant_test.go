package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qa "mpc-plus/internal/qa/domain"
)

func TestDetectVariant(t *testing.T) {
	cases := []struct {
		folder string
		want   string
	}{
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate6e", "6e"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate16e", "16e"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate9e", "9e"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate12e", "12e"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate15x", "15x"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate2.5x", "2.5x"},
		{"NDS-WKS-SN6543-2025-09-19-07-41-49-0008-GeometryCheckTemplate6xMVkVEnhancedCouch", "6x"},
	}
	for _, tc := range cases {
		variant, ok := DetectVariant("/data/iDrive/" + tc.folder)
		require.True(t, ok, tc.folder)
		assert.Equal(t, tc.want, variant.Name, tc.folder)
	}

	geo, _ := DetectVariant("GeometryCheckTemplate6xfff")
	assert.Equal(t, qa.CategoryGeometry, geo.Category)
	assert.Equal(t, "6x", geo.Name)

	beam6x, ok := DetectVariant("NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate6x")
	require.True(t, ok)
	assert.Equal(t, qa.CategoryBeam, beam6x.Category)
	assert.Equal(t, FamilyPhoton, beam6x.Family)
	assert.Equal(t, "6x", beam6x.Name)

	beamFFF, ok := DetectVariant("NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate6xFFF")
	require.True(t, ok)
	assert.Equal(t, qa.CategoryBeam, beamFFF.Category)
	assert.Equal(t, "6xfff", beamFFF.Name)

	_, ok = DetectVariant("NDS-WKS-SN6543-2025-09-19-07-41-49-0008-Unknown")
	assert.False(t, ok)
}

func TestParseRunTimeAndSerial(t *testing.T) {
	path := "/iDrive/NDS-WKS-SN6543-2025-09-19-07-41-49-0008-GeometryCheckTemplate6xMVkVEnhancedCouch"
	runTime, ok := ParseRunTime(path)
	require.True(t, ok)
	assert.Equal(t, "2025-09-19T07:41:49Z", runTime.Format("2006-01-02T15:04:05Z07:00"))

	serial, ok := ParseSerial(path)
	require.True(t, ok)
	assert.Equal(t, "6543", serial)

	_, ok = ParseRunTime("/no/date/here")
	assert.False(t, ok)
	_, ok = ParseSerial("/no/serial")
	assert.False(t, ok)
}

func TestStrategies(t *testing.T) {
	percent, err := LookupStrategy(StrategyPercentDeviation)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, percent.Convert(1.012), 1e-9)

	double, err := LookupStrategy(StrategyDoubleScaled)
	require.NoError(t, err)
	assert.InDelta(t, 120, double.Convert(1.012), 1e-9)

	defaults := DefaultStrategies()
	assert.Equal(t, StrategyPercentDeviation, defaults[FamilyPhoton].Name())
	assert.Equal(t, StrategyPercentDeviation, defaults[FamilyElectron].Name())

	_, err = StrategiesFromNames(map[string]string{"electron": "triple"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	_, err = StrategiesFromNames(map[string]string{"proton": StrategyPercentDeviation})
	assert.Error(t, err)
}

func TestCenterShiftMM(t *testing.T) {
	assert.InDelta(t, 0.5385, CenterShiftMM(1.00, 2.00, 1.05, 2.02), 1e-4)
	assert.Equal(t, 0.0, CenterShiftMM(1, 1, 1, 1))
}
