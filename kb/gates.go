package kb

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"autombs-backend/models"
)

// Config controls which hard gates run. Components are never
// hard-gated; items pass optimistically when no applicable checks
// exist so a downstream reasoner can judge them.
type Config struct {
	UseEffectiveDates     bool   `json:"use_effective_dates"`
	EncounterDate         string `json:"encounter_date,omitempty"` // YYYY-MM-DD; today when empty
	UseAgeGate            bool   `json:"use_age_gate"`
	UseDurationThresholds bool   `json:"use_duration_thresholds"`
}

// DefaultConfig enables the age and duration gates, with effective
// dates off (the original off-by-default policy).
func DefaultConfig() Config {
	return Config{
		UseAgeGate:            true,
		UseDurationThresholds: true,
	}
}

// SoftHints are the requirements an item carries that are not
// hard-checked, surfaced for the reasoner to confirm against the note.
type SoftHints struct {
	ComponentsRequired   []string `json:"components_required"`
	ComponentsProhibited []string `json:"components_prohibited"`
	SettingTokens        []string `json:"setting_tokens"`
	ProviderRolesAllowed []string `json:"provider_roles_allowed"`
}

// PassItem is one KB item that survived the hard gates
type PassItem struct {
	ItemNumber      string              `json:"item_number"`
	Description     string              `json:"description"`
	ScheduleFee     *float64            `json:"schedule_fee,omitempty"`
	SoftHints       SoftHints           `json:"soft_requirements_hint"`
	KeptBecause     string              `json:"kept_because"`
	SalientEvidence map[string][]string `json:"salient_evidence,omitempty"`
}

var (
	highPattern     = regexp.MustCompile(`\bhigh\b`)
	ordinaryPattern = regexp.MustCompile(`\bordinary\b`)
)

// expectedComplexity parses a complexity phrase out of an item's
// description. Items without one skip the complexity gate entirely.
func expectedComplexity(description string) string {
	desc := strings.ToLower(description)
	if strings.Contains(desc, "more than ordinary") && strings.Contains(desc, "not high") {
		return ComplexityMoreThanOrdinary
	}
	if highPattern.MatchString(desc) && !strings.Contains(desc, "not high") {
		return ComplexityHigh
	}
	if ordinaryPattern.MatchString(desc) && !strings.Contains(desc, "more than ordinary") {
		return ComplexityOrdinary
	}
	return ""
}

func inEffect(item models.KBItem, date string) bool {
	from := item.EffectiveFrom
	if from == "" {
		from = "1900-01-01"
	}
	to := item.EffectiveTo
	if to == "" {
		to = "9999-12-31"
	}
	return from <= date && date <= to
}

// Gate evaluates every KB item's hard gates against the facts and
// returns the items that pass, in KB order, each with a human-readable
// kept-because trail. Gates that cannot be checked (observation absent
// from the facts) keep the item rather than reject it.
func Gate(items []models.KBItem, facts Facts, cfg Config) []PassItem {
	date := cfg.EncounterDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	passed := make([]PassItem, 0, len(items))
	for _, item := range items {
		ok, reasons := evalItem(item, facts, cfg, date)
		if !ok {
			continue
		}

		passed = append(passed, PassItem{
			ItemNumber:      item.ItemNumber,
			Description:     item.Description,
			ScheduleFee:     item.ScheduleFee,
			SoftHints:       softHints(item),
			KeptBecause:     strings.Join(reasons, "; "),
			SalientEvidence: salientEvidence(facts),
		})
	}

	return passed
}

func evalItem(item models.KBItem, facts Facts, cfg Config, date string) (bool, []string) {
	var reasons []string
	hasAnyCheck := false

	if cfg.UseEffectiveDates {
		hasAnyCheck = true
		if !inEffect(item, date) {
			return false, nil
		}
		reasons = append(reasons, "effective dates: in effect")
	}

	if cfg.UseAgeGate && item.HardGates.PatientAge != nil {
		hasAnyCheck = true
		gate := item.HardGates.PatientAge
		if facts.PatientAgeYears == nil {
			reasons = append(reasons, "age gate present but unknown in facts (kept for reasoner)")
		} else {
			age := *facts.PatientAgeYears
			if gate.Unit == "months" {
				age = age * 12.0
			}
			if belowMin(age, gate) || aboveMax(age, gate) {
				return false, nil
			}
			reasons = append(reasons, fmt.Sprintf("age %g within gate", *facts.PatientAgeYears))
		}
	}

	if cfg.UseDurationThresholds && item.HardGates.ServiceRequirements != nil {
		sr := item.HardGates.ServiceRequirements
		if sr.MinDurationMinutes != nil || sr.MaxDurationMinutes != nil {
			hasAnyCheck = true
			minutes, found := observedMinutes(facts)
			if !found {
				reasons = append(reasons, "duration gate present but no minutes in facts (kept for reasoner)")
			} else {
				if sr.MinDurationMinutes != nil && minutes < *sr.MinDurationMinutes {
					return false, nil
				}
				if sr.MaxDurationMinutes != nil && minutes > *sr.MaxDurationMinutes {
					return false, nil
				}
				reasons = append(reasons, fmt.Sprintf("duration %g within gate", minutes))
			}
		}
	}

	// Complexity gate runs last; it is a text match on the description
	if expected := expectedComplexity(item.Description); expected != "" {
		hasAnyCheck = true
		if facts.AttendanceComplexity == "" {
			reasons = append(reasons, fmt.Sprintf("complexity phrase in item (%s) but unknown in facts (kept for reasoner)", expected))
		} else {
			if facts.AttendanceComplexity != expected {
				return false, nil
			}
			reasons = append(reasons, fmt.Sprintf("complexity %s matches item expectation", expected))
		}
	}

	if !hasAnyCheck {
		reasons = append(reasons, "no applicable hard checks; kept for reasoner")
	}

	return true, reasons
}

func belowMin(age float64, gate *models.AgeGate) bool {
	if gate.Min == nil {
		return false
	}
	if gate.MinInclusive != nil && !*gate.MinInclusive {
		return age <= *gate.Min
	}
	return age < *gate.Min
}

func aboveMax(age float64, gate *models.AgeGate) bool {
	if gate.Max == nil {
		return false
	}
	if gate.MaxInclusive != nil && !*gate.MaxInclusive {
		return age >= *gate.Max
	}
	return age > *gate.Max
}

// observedMinutes returns the last observed minutes value, matching
// the original pipeline which lets later mentions win
func observedMinutes(facts Facts) (float64, bool) {
	found := false
	var minutes float64
	for _, d := range facts.Durations {
		minutes = d.Minutes
		found = true
	}
	return minutes, found
}

func softHints(item models.KBItem) SoftHints {
	hints := SoftHints{
		ComponentsRequired:   []string{},
		ComponentsProhibited: []string{},
		SettingTokens:        []string{},
		ProviderRolesAllowed: item.HardGates.ProviderRolesAllowed,
	}
	if hints.ProviderRolesAllowed == nil {
		hints.ProviderRolesAllowed = []string{}
	}
	if sr := item.HardGates.ServiceRequirements; sr != nil {
		if sr.ComponentsRequired != nil {
			hints.ComponentsRequired = sr.ComponentsRequired
		}
		if sr.ComponentsProhibited != nil {
			hints.ComponentsProhibited = sr.ComponentsProhibited
		}
	}
	if sm := item.HardGates.SettingMode; sm != nil && sm.LocationsAllowed != nil {
		hints.SettingTokens = sm.LocationsAllowed
	}
	return hints
}

func salientEvidence(facts Facts) map[string][]string {
	out := map[string][]string{}
	for _, sp := range facts.AgeEvidence {
		out["age"] = append(out["age"], sp.Text)
	}
	for _, d := range facts.Durations {
		if len(out["durations"]) >= 6 {
			break
		}
		out["durations"] = append(out["durations"], d.Evidence...)
	}
	for _, tok := range facts.SettingTokens {
		out["setting"] = append(out["setting"], tok.Token)
	}
	return out
}
