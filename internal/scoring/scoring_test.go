package scoring

import (
	"context"
	"errors"
	"testing"
)

func TestFixedScorer(t *testing.T) {
	s := NewFixedScorer(85)

	marks, err := s.Score(context.Background(), "uploads/sheet.pdf")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if marks != 85 {
		t.Fatalf("expected 85, got %v", marks)
	}
}

func TestFixedScorerRejectsEmptyPath(t *testing.T) {
	s := NewFixedScorer(85)

	if _, err := s.Score(context.Background(), "  "); !errors.Is(err, ErrScore) {
		t.Fatalf("expected ErrScore, got %v", err)
	}
}

func TestFixedScorerNegativeMarksClamped(t *testing.T) {
	s := NewFixedScorer(-3)

	marks, err := s.Score(context.Background(), "uploads/sheet.pdf")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if marks != 0 {
		t.Fatalf("expected clamped 0, got %v", marks)
	}
}

func TestFixedScorerHonorsContext(t *testing.T) {
	s := NewFixedScorer(85)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Score(ctx, "uploads/sheet.pdf"); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}
