package assessment

import (
	"context"
	"errors"
	"io"
	"strings"

	"gradeboard/internal/blob"
	"gradeboard/internal/scoring"

	"github.com/google/uuid"
)

// repository is the slice of Repository the service depends on.
type repository interface {
	Create(ctx context.Context, name, questionPaperPath, answerKeyPath string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Assessment, error)
	List(ctx context.Context) ([]Assessment, error)
	AppendSubmission(ctx context.Context, id string, sub Submission) error
	ReplaceEvaluation(ctx context.Context, id, candidateKey string, questions []Question, totalMarks float64) error
	GetEvaluation(ctx context.Context, id, candidateKey string) (*EvaluationView, error)
}

// Service orchestrates the assessment lifecycle: creation, submission
// ingestion, and evaluation review.
type Service struct {
	repo   repository
	blobs  blob.Store
	scorer scoring.Scorer
}

func NewService(repo repository, blobs blob.Store, scorer scoring.Scorer) *Service {
	return &Service{repo: repo, blobs: blobs, scorer: scorer}
}

// FileUpload is one uploaded document: the client file name plus content.
type FileUpload struct {
	Name    string
	Content io.Reader
}

type IngestItem struct {
	CandidateKey string
	File         FileUpload
}

type IngestResult struct {
	CandidateKey string  `json:"candidateKey"`
	TotalMarks   float64 `json:"totalMarks"`
}

type IngestFailure struct {
	CandidateKey string `json:"candidateKey"`
	Error        string `json:"error"`
}

// IngestReport is the outcome of one ingestion batch: results for the
// sheets that made it in, one failure entry per sheet that did not.
type IngestReport struct {
	Results  []IngestResult  `json:"results"`
	Failures []IngestFailure `json:"failures,omitempty"`
}

func (s *Service) CreateAssessment(ctx context.Context, name string, questionPaper, answerKey FileUpload) (string, error) {
	if questionPaper.Content == nil || answerKey.Content == nil {
		return "", ErrInvalidInput
	}

	qpPath, err := s.blobs.Save(questionPaper.Name, questionPaper.Content)
	if err != nil {
		return "", err
	}
	akPath, err := s.blobs.Save(answerKey.Name, answerKey.Content)
	if err != nil {
		return "", err
	}

	return s.repo.Create(ctx, strings.TrimSpace(name), qpPath, akPath)
}

func (s *Service) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) ListAssessments(ctx context.Context) ([]Assessment, error) {
	return s.repo.List(ctx)
}

// Ingest scores and appends a batch of answer sheets. Batch shape is
// validated up front and rejects the whole batch; after that each sheet is
// processed in input order and failures are isolated per candidate, since
// one bad sheet must not block scoring the rest.
func (s *Service) Ingest(ctx context.Context, assessmentID string, items []IngestItem) (*IngestReport, error) {
	assessmentID = strings.TrimSpace(assessmentID)
	if _, err := uuid.Parse(assessmentID); err != nil {
		return nil, ErrInvalidInput
	}
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	for _, item := range items {
		if strings.TrimSpace(item.CandidateKey) == "" || item.File.Content == nil {
			return nil, ErrInvalidInput
		}
	}

	exists, err := s.repo.Exists(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAssessmentNotFound
	}

	report := &IngestReport{Results: make([]IngestResult, 0, len(items))}
	for _, item := range items {
		key := strings.TrimSpace(item.CandidateKey)

		sheetPath, err := s.blobs.Save(item.File.Name, item.File.Content)
		if err != nil {
			report.Failures = append(report.Failures, IngestFailure{CandidateKey: key, Error: "failed to store answer sheet"})
			continue
		}

		marks, err := s.scorer.Score(ctx, sheetPath)
		if err != nil {
			report.Failures = append(report.Failures, IngestFailure{CandidateKey: key, Error: "failed to score answer sheet"})
			continue
		}

		err = s.repo.AppendSubmission(ctx, assessmentID, Submission{
			CandidateKey:    key,
			AnswerSheetPath: sheetPath,
			TotalMarks:      marks,
		})
		if err != nil {
			msg := "failed to record submission"
			if errors.Is(err, ErrDuplicateCandidate) {
				msg = "duplicate candidate key"
			}
			report.Failures = append(report.Failures, IngestFailure{CandidateKey: key, Error: msg})
			continue
		}

		report.Results = append(report.Results, IngestResult{CandidateKey: key, TotalMarks: marks})
	}

	return report, nil
}

func (s *Service) GetEvaluation(ctx context.Context, assessmentID, candidateKey string) (*EvaluationView, error) {
	assessmentID = strings.TrimSpace(assessmentID)
	candidateKey = strings.TrimSpace(candidateKey)
	if assessmentID == "" || candidateKey == "" {
		return nil, ErrEvaluationNotFound
	}
	return s.repo.GetEvaluation(ctx, assessmentID, candidateKey)
}

// UpdateEvaluation replaces one candidate's question list and persists the
// recomputed total. The returned total is always the one just derived from
// the persisted list, never a caller-supplied value.
func (s *Service) UpdateEvaluation(ctx context.Context, assessmentID, candidateKey string, questions []Question) (float64, error) {
	assessmentID = strings.TrimSpace(assessmentID)
	candidateKey = strings.TrimSpace(candidateKey)
	if assessmentID == "" || candidateKey == "" || questions == nil {
		return 0, ErrInvalidInput
	}

	total := TotalAwardedMarks(questions)
	if err := s.repo.ReplaceEvaluation(ctx, assessmentID, candidateKey, questions, total); err != nil {
		return 0, err
	}
	return total, nil
}

// TotalAwardedMarks sums awarded marks across questions. A question with
// no awarded marks counts as zero.
func TotalAwardedMarks(questions []Question) float64 {
	total := 0.0
	for _, q := range questions {
		total += q.AwardedMarks
	}
	return total
}
