package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCheckpoint is returned for labels that match no checkpoint.
var ErrUnknownCheckpoint = errors.New("unknown checkpoint")

// Historical labels seen in stored records, keyed by their squashed form
// (lower case, letters and digits only).
var checkpointAliases = map[string]CheckpointID{
	"initial":           Initial,
	"intake":            Initial,
	"initialintake":     Initial,
	"initialassessment": Initial,
	"baseline":          Initial,
	"week0":             Initial,
	"4week":             FourWeek,
	"4weeks":            FourWeek,
	"week4":             FourWeek,
	"4wk":               FourWeek,
	"fourweek":          FourWeek,
	"4weekreassessment": FourWeek,
	"week4reassessment": FourWeek,
	"4weekfollowup":     FourWeek,
	"8week":             EightWeek,
	"8weeks":            EightWeek,
	"week8":             EightWeek,
	"8wk":               EightWeek,
	"eightweek":         EightWeek,
	"8weekreassessment": EightWeek,
	"week8reassessment": EightWeek,
	"8weekfollowup":     EightWeek,
}

// ParseCheckpoint maps any known label variant ("Intake", "Initial Intake",
// "4 week", "Week 8 Reassessment") to its CheckpointID.
func ParseCheckpoint(label string) (CheckpointID, error) {
	if id, ok := checkpointAliases[squash(label)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCheckpoint, label)
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
