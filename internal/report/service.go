package report

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"gradeboard/internal/assessment"

	"github.com/xuri/excelize/v2"
)

// assessmentReader is the slice of the assessment repository the report
// service needs.
type assessmentReader interface {
	Get(ctx context.Context, id string) (*assessment.Assessment, error)
	GetEvaluation(ctx context.Context, id, candidateKey string) (*assessment.EvaluationView, error)
}

type Service struct {
	assessments assessmentReader
}

func NewService(assessments assessmentReader) *Service {
	return &Service{assessments: assessments}
}

// ExportResultsExcel renders one assessment's per-candidate results as an
// xlsx workbook: one row per submission with the current total and review
// state.
func (s *Service) ExportResultsExcel(ctx context.Context, assessmentID string) ([]byte, string, error) {
	a, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"candidate_key", "answer_sheet", "total_marks", "questions_reviewed", "uploaded_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, sub := range a.Submissions {
		row := i + 2

		reviewed := 0
		if view, err := s.assessments.GetEvaluation(ctx, a.ID, sub.CandidateKey); err == nil {
			reviewed = len(view.Questions)
		}

		values := []any{
			sub.CandidateKey,
			path.Base(sub.AnswerSheetPath),
			sub.TotalMarks,
			reviewed,
			sub.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write excel: %w", err)
	}

	name := a.Name
	if name == "" {
		name = a.ID
	}
	return buf.Bytes(), name + "_results.xlsx", nil
}
