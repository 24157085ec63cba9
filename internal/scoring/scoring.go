package scoring

import (
	"context"
	"errors"
	"strings"
)

var ErrScore = errors.New("scoring failed")

// Scorer produces the total marks for one stored answer sheet.
// Implementations must not mutate any assessment state.
type Scorer interface {
	Score(ctx context.Context, answerSheetPath string) (float64, error)
}

// FixedScorer awards the same marks to every sheet. It stands in for the
// real grading pipeline until one exists; ingestion code only sees the
// Scorer interface, so swapping it in later touches nothing else.
type FixedScorer struct {
	Marks float64
}

func NewFixedScorer(marks float64) *FixedScorer {
	if marks < 0 {
		marks = 0
	}
	return &FixedScorer{Marks: marks}
}

func (s *FixedScorer) Score(ctx context.Context, answerSheetPath string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(answerSheetPath) == "" {
		return 0, ErrScore
	}
	return s.Marks, nil
}
