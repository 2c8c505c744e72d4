package kb

import (
	"regexp"
	"strconv"
	"strings"

	"autombs-backend/engine"
	"autombs-backend/models"
)

// Complexity values normalized from free text and item descriptions
const (
	ComplexityOrdinary              = "ordinary"
	ComplexityMoreThanOrdinary      = "more_than_ordinary_not_high"
	ComplexityHigh                  = "high"
	settingTokenHospital            = "hospital"
	settingTokenRecognisedPrivateED = "recognised_emergency_department_private_hospital"
)

// SettingToken is one observed or context-derived care-setting marker
type SettingToken struct {
	Token    string   `json:"token"`
	Support  string   `json:"support"` // "explicit" or "metadata"
	Evidence []string `json:"evidence,omitempty"`
}

// Duration is one observed time-on-task mention
type Duration struct {
	Minutes  float64  `json:"minutes"`
	Evidence []string `json:"evidence,omitempty"`
}

// Facts are the machine-checkable observations the gate engine runs
// against: extracted from the scanned text, with care-setting tokens
// injected from request context metadata.
type Facts struct {
	PatientAgeYears      *float64              `json:"patient_age_years,omitempty"`
	AgeEvidence          []models.EvidenceSpan `json:"patient_age_evidence,omitempty"`
	Durations            []Duration            `json:"durations,omitempty"`
	AttendanceComplexity string                `json:"attendance_complexity,omitempty"`
	SettingTokens        []SettingToken        `json:"setting_tokens,omitempty"`
}

var (
	agePattern      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:yo|y/o|yr old|yrs old|year old|years old)\b`)
	ageLabelPattern = regexp.MustCompile(`(?i)\bage:?\s*(\d{1,3})\b`)
	durationPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:mins?|minutes)\b`)
)

// ExtractFacts derives Facts from the scanned text plus the request's
// context options. Absent observations stay absent; the gate engine
// keeps items whose gates cannot be checked.
func ExtractFacts(text string, opts models.Options) Facts {
	facts := Facts{}

	if m := agePattern.FindStringSubmatchIndex(text); m != nil {
		facts.setAge(text, m)
	} else if m := ageLabelPattern.FindStringSubmatchIndex(text); m != nil {
		facts.setAge(text, m)
	}

	for _, m := range durationPattern.FindAllStringSubmatchIndex(text, -1) {
		minutes, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		facts.Durations = append(facts.Durations, Duration{
			Minutes:  minutes,
			Evidence: []string{text[m[0]:m[1]]},
		})
	}

	facts.AttendanceComplexity = observedComplexity(text)
	facts.SettingTokens = contextSettingTokens(opts)
	return facts
}

func (f *Facts) setAge(text string, m []int) {
	years, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return
	}
	f.PatientAgeYears = &years
	f.AgeEvidence = engine.Locate(text, []string{text[m[0]:m[1]]})
}

// observedComplexity normalizes a complexity phrase in the note, if any
func observedComplexity(text string) string {
	s := strings.ToLower(text)
	if strings.Contains(s, "more than ordinary") && strings.Contains(s, "not high") {
		return ComplexityMoreThanOrdinary
	}
	if strings.Contains(s, "high complexity") {
		return ComplexityHigh
	}
	if strings.Contains(s, "ordinary complexity") {
		return ComplexityOrdinary
	}
	return ""
}

// contextSettingTokens injects metadata-backed setting tokens from the
// encounter context: a generic hospital token when the hospital type is
// known, and the recognised private-ED token when department and
// context flags line up.
func contextSettingTokens(opts models.Options) []SettingToken {
	var tokens []SettingToken

	dept := strings.ToLower(strings.TrimSpace(opts.Department))
	hosp := strings.ToLower(strings.TrimSpace(opts.HospitalType))

	if hosp == "private" || hosp == "public" {
		tokens = append(tokens, SettingToken{
			Token:    settingTokenHospital,
			Support:  "metadata",
			Evidence: []string{"context: hospital_type=" + hosp},
		})
	}

	isED := dept == "ed" || dept == "emergency" || dept == "emergency_department"
	if isED && hosp == "private" && opts.RecognisedED {
		tokens = append(tokens, SettingToken{
			Token:   settingTokenRecognisedPrivateED,
			Support: "metadata",
			Evidence: []string{
				"context: department=" + dept,
				"context: hospital_type=" + hosp,
				"context: recognised_ed=true",
			},
		})
	}

	return tokens
}
