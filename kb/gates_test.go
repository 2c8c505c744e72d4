package kb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autombs-backend/kb"
	"autombs-backend/models"
)

func ageGate(min, max *float64) *models.AgeGate {
	return &models.AgeGate{Min: min, Max: max}
}

func TestGate_AgeGate(t *testing.T) {
	items := []models.KBItem{
		{ItemNumber: "100", Description: "Adult attendance", HardGates: models.HardGates{PatientAge: ageGate(f(16), nil)}},
		{ItemNumber: "200", Description: "Paediatric attendance", HardGates: models.HardGates{PatientAge: ageGate(nil, f(15))}},
	}

	facts := kb.ExtractFacts("55yo with chest pain", models.Options{})
	passed := kb.Gate(items, facts, kb.DefaultConfig())

	require.Len(t, passed, 1)
	assert.Equal(t, "100", passed[0].ItemNumber)
	assert.Contains(t, passed[0].KeptBecause, "age 55 within gate")
}

func TestGate_AgeUnknownKeepsItem(t *testing.T) {
	items := []models.KBItem{
		{ItemNumber: "100", HardGates: models.HardGates{PatientAge: ageGate(f(16), nil)}},
	}

	passed := kb.Gate(items, kb.Facts{}, kb.DefaultConfig())

	require.Len(t, passed, 1)
	assert.Contains(t, passed[0].KeptBecause, "kept for reasoner")
}

func TestGate_DurationThresholds(t *testing.T) {
	min20 := 20.0
	items := []models.KBItem{
		{
			ItemNumber: "300",
			HardGates: models.HardGates{
				ServiceRequirements: &models.ServiceRequirements{MinDurationMinutes: &min20},
			},
		},
	}

	short := kb.ExtractFacts("Consult 10 mins.", models.Options{})
	assert.Empty(t, kb.Gate(items, short, kb.DefaultConfig()))

	long := kb.ExtractFacts("Consult 25 mins.", models.Options{})
	passed := kb.Gate(items, long, kb.DefaultConfig())
	require.Len(t, passed, 1)
	assert.Contains(t, passed[0].KeptBecause, "duration 25 within gate")
}

func TestGate_EffectiveDates(t *testing.T) {
	items := []models.KBItem{
		{ItemNumber: "400", EffectiveFrom: "2020-01-01", EffectiveTo: "2020-12-31"},
		{ItemNumber: "500", EffectiveFrom: "2020-01-01"},
	}

	cfg := kb.DefaultConfig()
	cfg.UseEffectiveDates = true
	cfg.EncounterDate = "2021-06-01"

	passed := kb.Gate(items, kb.Facts{}, cfg)

	require.Len(t, passed, 1)
	assert.Equal(t, "500", passed[0].ItemNumber)
}

func TestGate_EffectiveDatesOffByDefault(t *testing.T) {
	items := []models.KBItem{
		{ItemNumber: "400", EffectiveFrom: "2020-01-01", EffectiveTo: "2020-12-31"},
	}

	passed := kb.Gate(items, kb.Facts{}, kb.DefaultConfig())
	assert.Len(t, passed, 1)
}

func TestGate_ComplexityFromDescription(t *testing.T) {
	items := []models.KBItem{
		{ItemNumber: "600", Description: "Attendance of high complexity"},
		{ItemNumber: "700", Description: "Attendance of ordinary complexity"},
	}

	facts := kb.ExtractFacts("Prolonged resuscitation, high complexity attendance.", models.Options{})
	passed := kb.Gate(items, facts, kb.DefaultConfig())

	require.Len(t, passed, 1)
	assert.Equal(t, "600", passed[0].ItemNumber)
	assert.Contains(t, passed[0].KeptBecause, "complexity high matches")
}

func TestGate_OptimisticPass(t *testing.T) {
	items := []models.KBItem{{ItemNumber: "800", Description: "Plain service"}}

	passed := kb.Gate(items, kb.Facts{}, kb.DefaultConfig())

	require.Len(t, passed, 1)
	assert.Equal(t, "no applicable hard checks; kept for reasoner", passed[0].KeptBecause)
}

func TestGate_SalientEvidence(t *testing.T) {
	items := []models.KBItem{{ItemNumber: "900"}}

	facts := kb.ExtractFacts("55yo seen for 25 mins.", models.Options{HospitalType: "public"})
	passed := kb.Gate(items, facts, kb.DefaultConfig())

	require.Len(t, passed, 1)
	ev := passed[0].SalientEvidence
	assert.Equal(t, []string{"55yo"}, ev["age"])
	assert.Equal(t, []string{"25 mins"}, ev["durations"])
	assert.Equal(t, []string{"hospital"}, ev["setting"])
}
