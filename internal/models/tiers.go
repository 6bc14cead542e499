package models

// TierInfo describes one of the preset assessment scopes offered before a
// run starts. Sections lists the catalog section ids included by the tier;
// an empty list means the full catalog.
type TierInfo struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Duration       string   `json:"duration"`
	TotalQuestions int      `json:"total_questions"`
	Sections       []string `json:"sections,omitempty"`
}

const (
	TierQuick    = "quick"
	TierStandard = "standard"
	TierDeep     = "deep"
)

// AssessmentTiers maps tier ids to their scope. Question totals are
// approximate and informational; the engine always derives progress from
// the filtered catalog it actually loads.
var AssessmentTiers = map[string]TierInfo{
	TierQuick: {
		Name:           "Quick Check",
		Description:    "Essential security fundamentals (15-25 questions)",
		Duration:       "10-15 minutes",
		TotalQuestions: 21,
		Sections:       []string{"section_1", "section_4", "section_10"},
	},
	TierStandard: {
		Name:           "Standard Assessment",
		Description:    "Comprehensive security evaluation (80-120 questions)",
		Duration:       "45-60 minutes",
		TotalQuestions: 95,
		Sections: []string{
			"section_1", "section_2", "section_3", "section_4", "section_5",
			"section_7", "section_8", "section_10", "section_15", "section_16",
		},
	},
	TierDeep: {
		Name:           "Deep Dive Assessment",
		Description:    "Complete security posture analysis (400+ questions)",
		Duration:       "2-3 hours",
		TotalQuestions: 409,
		// Empty Sections: the deep tier spans the whole catalog.
	},
}

// IsValidTier reports whether the tier id is known.
func IsValidTier(tier string) bool {
	_, ok := AssessmentTiers[tier]
	return ok
}
