package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrDuplicateCandidate = errors.New("duplicate candidate key")
	ErrInvalidInput       = errors.New("invalid input")
)

// Repository owns the assessments, submissions, and evaluations tables.
// Every write is a single statement so concurrent ingestion and review
// never rewrite state from a stale in-memory copy.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name, questionPaperPath, answerKeyPath string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assessments (id, name, question_paper_path, answer_key_path)
		VALUES ($1, $2, $3, $4)
	`, id, name, questionPaperPath, answerKeyPath)
	if err != nil {
		return "", fmt.Errorf("insert assessment: %w", err)
	}
	return id, nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assessment exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAssessmentNotFound
	}

	a := &Assessment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, question_paper_path, answer_key_path, created_at
		FROM assessments
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.QuestionPaperPath, &a.AnswerKeyPath, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("load assessment: %w", err)
	}

	subs, err := r.loadSubmissions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Submissions = subs
	return a, nil
}

func (r *Repository) List(ctx context.Context) ([]Assessment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, question_paper_path, answer_key_path, created_at
		FROM assessments
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	out := make([]Assessment, 0)
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.Name, &a.QuestionPaperPath, &a.AnswerKeyPath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}

	for i := range out {
		subs, err := r.loadSubmissions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Submissions = subs
	}
	return out, nil
}

// AppendSubmission appends one submission under the assessment root. A
// missing root surfaces as ErrAssessmentNotFound, a replayed candidate key
// as ErrDuplicateCandidate.
func (r *Repository) AppendSubmission(ctx context.Context, id string, sub Submission) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrAssessmentNotFound
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (assessment_id, candidate_key, answer_sheet_path, total_marks)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM assessments WHERE id = $1)
	`, id, sub.CandidateKey, sub.AnswerSheetPath, sub.TotalMarks)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateCandidate
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert submission result: %w", err)
	}
	if n == 0 {
		return ErrAssessmentNotFound
	}
	return nil
}

// ReplaceEvaluation replaces one candidate's question list and total in a
// single upsert keyed by (assessmentId, candidateKey). The insert is
// guarded by the candidate's submission, so an unknown pairing is
// ErrEvaluationNotFound rather than a stray row.
func (r *Repository) ReplaceEvaluation(ctx context.Context, id, candidateKey string, questions []Question, totalMarks float64) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrEvaluationNotFound
	}

	if questions == nil {
		questions = []Question{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluations (assessment_id, candidate_key, questions, total_marks, updated_at)
		SELECT s.assessment_id, s.candidate_key, $3::jsonb, $4, now()
		FROM submissions s
		WHERE s.assessment_id = $1 AND s.candidate_key = $2
		ON CONFLICT (assessment_id, candidate_key)
		DO UPDATE SET
			questions = EXCLUDED.questions,
			total_marks = EXCLUDED.total_marks,
			updated_at = now()
	`, id, candidateKey, questionsJSON, totalMarks)
	if err != nil {
		return fmt.Errorf("replace evaluation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace evaluation result: %w", err)
	}
	if n == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

func (r *Repository) GetEvaluation(ctx context.Context, id, candidateKey string) (*EvaluationView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrEvaluationNotFound
	}

	var (
		view          EvaluationView
		sheetPath     string
		ingestMarks   float64
		questionsJSON []byte
		reviewedMarks sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			a.name,
			s.candidate_key,
			s.answer_sheet_path,
			s.total_marks,
			COALESCE(e.questions, '[]'::jsonb),
			e.total_marks
		FROM submissions s
		JOIN assessments a ON a.id = s.assessment_id
		LEFT JOIN evaluations e
			ON e.assessment_id = s.assessment_id
			AND e.candidate_key = s.candidate_key
		WHERE s.assessment_id = $1 AND s.candidate_key = $2
	`, id, candidateKey).Scan(
		&view.AssessmentName,
		&view.CandidateKey,
		&sheetPath,
		&ingestMarks,
		&questionsJSON,
		&reviewedMarks,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("load evaluation: %w", err)
	}

	view.Questions = make([]Question, 0)
	if len(questionsJSON) > 0 {
		if err := json.Unmarshal(questionsJSON, &view.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}

	view.TotalMarks = ingestMarks
	if reviewedMarks.Valid {
		view.TotalMarks = reviewedMarks.Float64
	}
	view.StudentAnswerSheet = AnswerSheetRef{URL: "/uploads/" + path.Base(sheetPath)}
	return &view, nil
}

func (r *Repository) loadSubmissions(ctx context.Context, id string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.candidate_key,
			s.answer_sheet_path,
			COALESCE(e.total_marks, s.total_marks),
			s.created_at
		FROM submissions s
		LEFT JOIN evaluations e
			ON e.assessment_id = s.assessment_id
			AND e.candidate_key = s.candidate_key
		WHERE s.assessment_id = $1
		ORDER BY s.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]Submission, 0)
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.CandidateKey, &s.AnswerSheetPath, &s.TotalMarks, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}
