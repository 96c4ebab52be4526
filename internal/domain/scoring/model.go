package scoring

import (
	"strings"
	"time"
)

// FormType distinguishes the baseline questionnaire from reassessments.
type FormType string

const (
	FormIntake   FormType = "intake"
	FormFollowUp FormType = "follow-up"
)

// ParseFormType accepts the canonical names plus the spellings found in
// stored records ("Initial Intake", "Follow Up", "reassessment").
func ParseFormType(s string) (FormType, bool) {
	switch normalizeLabel(s) {
	case "intake", "initialintake", "initial", "baseline":
		return FormIntake, true
	case "followup", "reassessment", "followupassessment":
		return FormFollowUp, true
	}
	return "", false
}

// Region selects the disability index a questionnaire uses.
type Region string

const (
	RegionNeck      Region = "neck"
	RegionLowBack   Region = "low-back"
	RegionUpperLimb Region = "upper-limb"
	RegionLowerLimb Region = "lower-limb"
)

// ParseRegion normalizes UI region labels ("Low Back", "lowBack", "Lower
// Limb") to a Region.
func ParseRegion(s string) (Region, bool) {
	switch normalizeLabel(s) {
	case "neck", "cervical":
		return RegionNeck, true
	case "lowback", "back", "lumbar":
		return RegionLowBack, true
	case "upperlimb", "upperextremity", "arm", "shoulder":
		return RegionUpperLimb, true
	case "lowerlimb", "lowerextremity", "leg", "knee", "hip":
		return RegionLowerLimb, true
	}
	return "", false
}

// Index describes the shape of a region's disability questionnaire.
type Index struct {
	Name     string
	Items    int
	MaxScore int
}

var indexes = map[Region]Index{
	RegionNeck:      {Name: "NDI", Items: 10, MaxScore: 5},
	RegionLowBack:   {Name: "ODI", Items: 10, MaxScore: 5},
	RegionUpperLimb: {Name: "ULFI", Items: 25, MaxScore: 4},
	RegionLowerLimb: {Name: "LEFS", Items: 20, MaxScore: 4},
}

// IndexFor returns the disability index for region.
func IndexFor(r Region) (Index, bool) {
	idx, ok := indexes[r]
	return idx, ok
}

// Phase is the named recovery stage derived from the SRS.
type Phase string

const (
	PhaseReset   Phase = "RESET"
	PhaseEducate Phase = "EDUCATE"
	PhaseRebuild Phase = "REBUILD"
)

// PSFSItem is one Patient-Specific Functional Scale activity.
type PSFSItem struct {
	Activity string `json:"activity"`
	Score    int    `json:"score"`
}

// NoBeliefs is the checklist answer meaning no negative belief was endorsed.
const NoBeliefs = "None of these apply"

// BeliefCatalogue lists every answer the belief checklist offers.
var BeliefCatalogue = []string{
	"My pain means I am damaging my body",
	"I should avoid movement until the pain goes away",
	"My spine or joint is fragile and easily injured",
	"I will need surgery to get better",
	"Scans show something is badly wrong with me",
	"Rest is the best treatment for my pain",
	"My pain will never get better",
	"I am too old to recover",
	NoBeliefs,
}

var beliefSet = func() map[string]bool {
	m := make(map[string]bool, len(BeliefCatalogue))
	for _, b := range BeliefCatalogue {
		m[b] = true
	}
	return m
}()

// Snapshot is one completed questionnaire. Snapshots are values; the
// calculator never mutates them.
type Snapshot struct {
	FormType                 FormType       `json:"form_type"`
	Region                   Region         `json:"region"`
	DisabilityAnswers        []int          `json:"disability_answers"`
	VAS                      int            `json:"vas"`
	PSFS                     []PSFSItem     `json:"psfs"`
	Beliefs                  []string       `json:"beliefs"`
	Confidence               int            `json:"confidence"`
	GROC                     int            `json:"groc"`
	RecoveryMilestone        bool           `json:"recovery_milestone"`
	ClinicalProgressVerified bool           `json:"clinical_progress_verified"`
	PCS4                     map[string]int `json:"pcs4,omitempty"`
	TSK7                     map[string]int `json:"tsk7,omitempty"`
	IntakeDate               time.Time      `json:"intake_date"`
	AssessmentDate           time.Time      `json:"assessment_date"`
}

// PSFSTotal sums the activity scores.
func (s Snapshot) PSFSTotal() int {
	total := 0
	for _, item := range s.PSFS {
		total += item.Score
	}
	return total
}

// EndorsesNoBeliefs reports whether the only belief selected is NoBeliefs.
func (s Snapshot) EndorsesNoBeliefs() bool {
	return len(s.Beliefs) == 1 && s.Beliefs[0] == NoBeliefs
}

// Criterion is one line of the SRS breakdown.
type Criterion struct {
	Name     string `json:"name"`
	Met      bool   `json:"met"`
	Points   int    `json:"points"`
	Possible int    `json:"possible"`
}

// Result is the derived score for a snapshot.
type Result struct {
	SRS                  int         `json:"srs"`
	DisabilityPercentage float64     `json:"disability_percentage"`
	Phase                Phase       `json:"phase"`
	Breakdown            []Criterion `json:"breakdown"`
}

func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
