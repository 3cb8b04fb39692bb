package delivery

import (
	"fmt"
	"strings"

	"github.com/nyashahama/project-delivery-backend/internal/email"
)

// ReviewStage tags a document with the project phase it belongs to.
type ReviewStage string

const (
	StageReview1 ReviewStage = "review_1"
	StageReview2 ReviewStage = "review_2"
	StageReview3 ReviewStage = "review_3"
)

var stageInfo = map[ReviewStage]struct{ label, description string }{
	StageReview1: {"Review 1", "Initial drafts and concept documents"},
	StageReview2: {"Review 2", "Revised documents incorporating first-round feedback"},
	StageReview3: {"Review 3", "Final documents ready for handover"},
}

// AllStages returns every stage in canonical order.
func AllStages() []ReviewStage {
	return []ReviewStage{StageReview1, StageReview2, StageReview3}
}

// ParseReviewStage rejects anything outside the closed set.
func ParseReviewStage(s string) (ReviewStage, error) {
	st := ReviewStage(s)
	if _, ok := stageInfo[st]; !ok {
		return "", fmt.Errorf("delivery: unknown review stage %q", s)
	}
	return st, nil
}

func (s ReviewStage) Valid() bool {
	_, ok := stageInfo[s]
	return ok
}

func (s ReviewStage) Label() string {
	if info, ok := stageInfo[s]; ok {
		return info.label
	}
	return string(s)
}

func (s ReviewStage) Description() string {
	return stageInfo[s].description
}

// StageInfo is the dialog metadata for one stage.
type StageInfo struct {
	Value       ReviewStage `json:"value"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
}

// Stages lists every stage with its label and description.
func Stages() []StageInfo {
	out := make([]StageInfo, 0, len(stageInfo))
	for _, s := range AllStages() {
		out = append(out, StageInfo{Value: s, Label: s.Label(), Description: s.Description()})
	}
	return out
}

// normalizeStages drops duplicates and returns the stages in canonical order.
func normalizeStages(stages []ReviewStage) []ReviewStage {
	seen := make(map[ReviewStage]bool, len(stages))
	for _, s := range stages {
		seen[s] = true
	}
	out := make([]ReviewStage, 0, len(seen))
	for _, s := range AllStages() {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// StagesLabel is the review_stages value for a delivery email.
func StagesLabel(stages []ReviewStage) string {
	stages = normalizeStages(stages)
	if len(stages) == len(AllStages()) {
		return email.DefaultReviewStagesLabel
	}
	labels := make([]string, len(stages))
	for i, s := range stages {
		labels[i] = s.Label()
	}
	return strings.Join(labels, ", ")
}
