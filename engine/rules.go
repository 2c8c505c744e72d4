package engine

import (
	"regexp"

	"autombs-backend/models"
)

// Rule is one entry in the suggestion catalog: a trigger pattern, the
// suggestion it builds when the pattern matches, and the needles whose
// first occurrences are cited as evidence. Rules are stateless, pure
// functions of the scanned text.
type Rule struct {
	// Trigger matched case-insensitively against the scanned text.
	Pattern *regexp.Regexp

	// Base item, and the higher-tier item selected when TierTokens
	// matches a standalone minute count in the text.
	Item       string
	TierItem   string
	TierTokens *regexp.Regexp

	Description string
	Confidence  float64
	Reasoning   string
	Needles     []string
}

// Matches reports whether the rule applies to the scanned text
func (r Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

// Build constructs the rule's suggestion for the scanned text, with
// evidence gathered via Locate. Callers must only invoke Build when
// Matches returned true.
func (r Rule) Build(text string) models.Suggestion {
	item := r.Item
	if r.TierTokens != nil && r.TierTokens.MatchString(text) {
		item = r.TierItem
	}

	return models.Suggestion{
		Item:        item,
		Description: r.Description,
		Confidence:  r.Confidence,
		Reasoning:   r.Reasoning,
		Evidence:    Locate(text, r.Needles),
	}
}

// catalog is the ordered rule table. Iteration order is the order
// matching suggestions appear in the result list; it never changes
// which rules fire.
var catalog = []Rule{
	{
		Pattern:     regexp.MustCompile(`(?i)\b(telehealth|video|phone)\b`),
		Item:        "91823",
		TierItem:    "91836",
		TierTokens:  regexp.MustCompile(`\b(20|25|30)\b`),
		Description: "Telehealth attendance by a GP (Level B-C)",
		Confidence:  0.78,
		Reasoning:   "Telehealth modality and duration suggest Level B/C telehealth.",
		Needles:     []string{"Telehealth", "video", "phone", "mins"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(suturing|laceration|wound)\b`),
		Item:        "30026",
		Description: "Repair of superficial laceration (suturing)",
		Confidence:  0.82,
		Reasoning:   "Simple suturing with local anaesthetic documented.",
		Needles:     []string{"laceration", "suturing", "local anaesthetic", "nylon"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\becg\b`),
		Item:        "11700",
		Description: "Electrocardiogram tracing and report",
		Confidence:  0.74,
		Reasoning:   "ECG performed and interpreted.",
		Needles:     []string{"ECG", "sinus rhythm", "palpitations"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(throat swab|fbc|crp|pathology|culture)\b`),
		Item:        "65111",
		Description: "Pathology test request (example)",
		Confidence:  0.65,
		Reasoning:   "Pathology orders present (throat swab, FBC/CRP).",
		Needles:     []string{"throat swab", "FBC", "CRP", "culture"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(x-ray|imaging|report)\b`),
		Item:        "58503",
		Description: "Diagnostic imaging service (example)",
		Confidence:  0.70,
		Reasoning:   "Imaging performed and report available.",
		Needles:     []string{"X-ray", "imaging", "report"},
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(consult|in-person|mins|review|time|history|exam)\b`),
		Item:        "23",
		TierItem:    "36",
		TierTokens:  regexp.MustCompile(`\b(25|30)\b`),
		Description: "GP attendance (Level B/C)",
		Confidence:  0.68,
		Reasoning:   "Consultation with Hx/Exam and time noted.",
		Needles:     []string{"consult", "in-person", "mins", "review", "history", "exam", "time"},
	},
}

// conflictPairs declares mutually exclusive item codes. When both
// members of a pair are suggested, each receives the other's code in
// its conflicts set.
var conflictPairs = [][2]string{
	{"23", "36"}, // same-day GP attendance tiers cannot both be billed
}

// Catalog returns the ordered rule table
func Catalog() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}
