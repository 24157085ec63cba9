package assessment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeRepo struct {
	assessments map[string]*Assessment
	evaluations map[string][]Question
	appendErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assessments: make(map[string]*Assessment),
		evaluations: make(map[string][]Question),
	}
}

func evalKey(id, candidateKey string) string { return id + "|" + candidateKey }

func (f *fakeRepo) Create(ctx context.Context, name, qpPath, akPath string) (string, error) {
	id := uuid.NewString()
	f.assessments[id] = &Assessment{
		ID:                id,
		Name:              name,
		QuestionPaperPath: qpPath,
		AnswerKeyPath:     akPath,
		Submissions:       []Submission{},
	}
	return id, nil
}

func (f *fakeRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.assessments[id]
	return ok, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (*Assessment, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return a, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]Assessment, error) {
	out := make([]Assessment, 0, len(f.assessments))
	for _, a := range f.assessments {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) AppendSubmission(ctx context.Context, id string, sub Submission) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	a, ok := f.assessments[id]
	if !ok {
		return ErrAssessmentNotFound
	}
	for _, existing := range a.Submissions {
		if existing.CandidateKey == sub.CandidateKey {
			return ErrDuplicateCandidate
		}
	}
	a.Submissions = append(a.Submissions, sub)
	return nil
}

func (f *fakeRepo) ReplaceEvaluation(ctx context.Context, id, candidateKey string, questions []Question, totalMarks float64) error {
	a, ok := f.assessments[id]
	if !ok {
		return ErrEvaluationNotFound
	}
	for i, sub := range a.Submissions {
		if sub.CandidateKey == candidateKey {
			f.evaluations[evalKey(id, candidateKey)] = questions
			a.Submissions[i].TotalMarks = totalMarks
			return nil
		}
	}
	return ErrEvaluationNotFound
}

func (f *fakeRepo) GetEvaluation(ctx context.Context, id, candidateKey string) (*EvaluationView, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, ErrEvaluationNotFound
	}
	for _, sub := range a.Submissions {
		if sub.CandidateKey == candidateKey {
			questions := f.evaluations[evalKey(id, candidateKey)]
			if questions == nil {
				questions = []Question{}
			}
			return &EvaluationView{
				AssessmentName:     a.Name,
				CandidateKey:       candidateKey,
				StudentAnswerSheet: AnswerSheetRef{URL: "/uploads/" + path.Base(sub.AnswerSheetPath)},
				Questions:          questions,
				TotalMarks:         sub.TotalMarks,
			}, nil
		}
	}
	return nil, ErrEvaluationNotFound
}

type fakeBlobStore struct {
	saved   []string
	failFor string
}

func (f *fakeBlobStore) Save(name string, r io.Reader) (string, error) {
	if f.failFor != "" && name == f.failFor {
		return "", errors.New("disk full")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	p := "uploads/" + name
	f.saved = append(f.saved, p)
	return p, nil
}

type fakeScorer struct {
	marks   float64
	failFor string
	calls   int
}

func (f *fakeScorer) Score(ctx context.Context, answerSheetPath string) (float64, error) {
	f.calls++
	if f.failFor != "" && strings.HasSuffix(answerSheetPath, f.failFor) {
		return 0, errors.New("scoring backend unavailable")
	}
	return f.marks, nil
}

func newTestService(marks float64) (*Service, *fakeRepo, *fakeBlobStore, *fakeScorer) {
	repo := newFakeRepo()
	blobs := &fakeBlobStore{}
	scorer := &fakeScorer{marks: marks}
	return NewService(repo, blobs, scorer), repo, blobs, scorer
}

func seedAssessment(t *testing.T, svc *Service, name string) string {
	t.Helper()
	id, err := svc.CreateAssessment(context.Background(), name,
		FileUpload{Name: "paper.pdf", Content: strings.NewReader("paper")},
		FileUpload{Name: "key.pdf", Content: strings.NewReader("key")},
	)
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	return id
}

func ingestItems(keys ...string) []IngestItem {
	items := make([]IngestItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, IngestItem{
			CandidateKey: k,
			File:         FileUpload{Name: k + "_sheet.pdf", Content: strings.NewReader("sheet " + k)},
		})
	}
	return items
}

func TestIngestScoresEveryItem(t *testing.T) {
	svc, repo, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	report, err := svc.Ingest(context.Background(), id, ingestItems("A1", "A2"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(report.Results) != 2 || len(report.Failures) != 0 {
		t.Fatalf("expected 2 results and no failures, got %d/%d", len(report.Results), len(report.Failures))
	}
	for i, key := range []string{"A1", "A2"} {
		if report.Results[i].CandidateKey != key {
			t.Fatalf("expected result %d for %s, got %s", i, key, report.Results[i].CandidateKey)
		}
		if report.Results[i].TotalMarks != 85 {
			t.Fatalf("expected scorer marks 85, got %v", report.Results[i].TotalMarks)
		}
	}

	a, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if len(a.Submissions) != 2 {
		t.Fatalf("expected 2 submissions appended, got %d", len(a.Submissions))
	}
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	svc, _, _, scorer := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	if _, err := svc.Ingest(context.Background(), id, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty batch, got %v", err)
	}
	if scorer.calls != 0 {
		t.Fatalf("nothing should have been scored, got %d calls", scorer.calls)
	}
}

func TestIngestRejectsItemWithoutKey(t *testing.T) {
	svc, repo, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	items := ingestItems("A1")
	items = append(items, IngestItem{File: FileUpload{Name: "x.pdf", Content: strings.NewReader("x")}})

	if _, err := svc.Ingest(context.Background(), id, items); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	a, _ := repo.Get(context.Background(), id)
	if len(a.Submissions) != 0 {
		t.Fatalf("no submissions should be appended on batch validation failure, got %d", len(a.Submissions))
	}
}

func TestIngestUnknownAssessment(t *testing.T) {
	svc, _, _, _ := newTestService(85)

	_, err := svc.Ingest(context.Background(), uuid.NewString(), ingestItems("A1"))
	if !errors.Is(err, ErrAssessmentNotFound) {
		t.Fatalf("expected ErrAssessmentNotFound, got %v", err)
	}
}

func TestIngestMalformedAssessmentID(t *testing.T) {
	svc, _, _, _ := newTestService(85)

	_, err := svc.Ingest(context.Background(), "not-a-uuid", ingestItems("A1"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestIsolatesPerItemFailures(t *testing.T) {
	svc, repo, _, scorer := newTestService(70)
	id := seedAssessment(t, svc, "Midterm")
	scorer.failFor = "A2_sheet.pdf"

	report, err := svc.Ingest(context.Background(), id, ingestItems("A1", "A2", "A3"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 successful results, got %d", len(report.Results))
	}
	if len(report.Failures) != 1 || report.Failures[0].CandidateKey != "A2" {
		t.Fatalf("expected one failure for A2, got %+v", report.Failures)
	}

	a, _ := repo.Get(context.Background(), id)
	if len(a.Submissions) != 2 {
		t.Fatalf("expected the other sheets to land, got %d submissions", len(a.Submissions))
	}
	for _, sub := range a.Submissions {
		if sub.CandidateKey == "A2" {
			t.Fatalf("failed item must not be appended")
		}
	}
}

func TestIngestReportsDuplicateCandidate(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	if _, err := svc.Ingest(context.Background(), id, ingestItems("A1")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	report, err := svc.Ingest(context.Background(), id, ingestItems("A1"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(report.Results) != 0 || len(report.Failures) != 1 {
		t.Fatalf("expected duplicate to fail per-item, got %+v", report)
	}
	if report.Failures[0].Error != "duplicate candidate key" {
		t.Fatalf("expected duplicate failure reason, got %q", report.Failures[0].Error)
	}
}

func TestUpdateEvaluationRecomputesTotal(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")
	if _, err := svc.Ingest(context.Background(), id, ingestItems("A1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	questions := []Question{
		{Number: 1, AwardedMarks: 10},
		{Number: 2, AwardedMarks: 15},
	}
	total, err := svc.UpdateEvaluation(context.Background(), id, "A1", questions)
	if err != nil {
		t.Fatalf("update evaluation: %v", err)
	}
	if total != 25 {
		t.Fatalf("expected total 25, got %v", total)
	}

	view, err := svc.GetEvaluation(context.Background(), id, "A1")
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if view.TotalMarks != 25 {
		t.Fatalf("read-after-write total mismatch: %v", view.TotalMarks)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("expected the replaced question list back, got %d", len(view.Questions))
	}
}

func TestUpdateEvaluationMissingAwardedMarksCountAsZero(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")
	if _, err := svc.Ingest(context.Background(), id, ingestItems("A1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	total, err := svc.UpdateEvaluation(context.Background(), id, "A1", []Question{
		{Number: 1, AwardedMarks: 7},
		{Number: 2},
	})
	if err != nil {
		t.Fatalf("update evaluation: %v", err)
	}
	if total != 7 {
		t.Fatalf("question without awarded marks must count as 0, got total %v", total)
	}
}

func TestUpdateEvaluationIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")
	if _, err := svc.Ingest(context.Background(), id, ingestItems("A1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	questions := []Question{{Number: 1, AwardedMarks: 12.5}}
	first, err := svc.UpdateEvaluation(context.Background(), id, "A1", questions)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := svc.UpdateEvaluation(context.Background(), id, "A1", questions)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if first != second {
		t.Fatalf("same questions must yield the same total: %v vs %v", first, second)
	}
}

func TestUpdateEvaluationRejectsNilQuestions(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	if _, err := svc.UpdateEvaluation(context.Background(), id, "A1", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateEvaluationUnknownCandidate(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")

	_, err := svc.UpdateEvaluation(context.Background(), id, "ghost", []Question{{Number: 1, AwardedMarks: 1}})
	if !errors.Is(err, ErrEvaluationNotFound) {
		t.Fatalf("expected ErrEvaluationNotFound, got %v", err)
	}
}

func TestGetEvaluationBeforeReviewShowsIngestScore(t *testing.T) {
	svc, _, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")
	if _, err := svc.Ingest(context.Background(), id, ingestItems("A1", "A2")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	view, err := svc.GetEvaluation(context.Background(), id, "A1")
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	if view.TotalMarks != 85 {
		t.Fatalf("expected ingestion-time score 85 before review, got %v", view.TotalMarks)
	}
	if len(view.Questions) != 0 {
		t.Fatalf("no questions should exist before the first review, got %d", len(view.Questions))
	}
	if view.StudentAnswerSheet.URL != "/uploads/A1_sheet.pdf" {
		t.Fatalf("unexpected sheet url %q", view.StudentAnswerSheet.URL)
	}
}

func TestTotalAwardedMarks(t *testing.T) {
	tests := []struct {
		name      string
		questions []Question
		want      float64
	}{
		{name: "empty", questions: []Question{}, want: 0},
		{name: "sum", questions: []Question{{AwardedMarks: 2}, {AwardedMarks: 3.5}}, want: 5.5},
		{name: "missing counts as zero", questions: []Question{{AwardedMarks: 4}, {}}, want: 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalAwardedMarks(tc.questions); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCreateAssessmentRequiresBothFiles(t *testing.T) {
	svc, _, _, _ := newTestService(85)

	_, err := svc.CreateAssessment(context.Background(), "Midterm",
		FileUpload{Name: "paper.pdf", Content: strings.NewReader("paper")},
		FileUpload{},
	)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestRepositoryErrorIsPerItem(t *testing.T) {
	svc, repo, _, _ := newTestService(85)
	id := seedAssessment(t, svc, "Midterm")
	repo.appendErr = fmt.Errorf("insert submission: %w", errors.New("connection reset"))

	report, err := svc.Ingest(context.Background(), id, ingestItems("A1"))
	if err != nil {
		t.Fatalf("ingest should not abort on a storage failure: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].CandidateKey != "A1" {
		t.Fatalf("expected a per-item failure for A1, got %+v", report)
	}
}
