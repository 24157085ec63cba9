package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 64 << 20

type Handler struct {
	svc assessmentService
}

type assessmentService interface {
	CreateAssessment(ctx context.Context, name string, questionPaper, answerKey FileUpload) (string, error)
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context) ([]Assessment, error)
	Ingest(ctx context.Context, assessmentID string, items []IngestItem) (*IngestReport, error)
	GetEvaluation(ctx context.Context, assessmentID, candidateKey string) (*EvaluationView, error)
	UpdateEvaluation(ctx context.Context, assessmentID, candidateKey string, questions []Question) (float64, error)
}

type updateEvaluationRequest struct {
	Questions []Question `json:"questions"`
}

func NewHandler(svc assessmentService) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /assessments: multipart questionPaper + answerSheet
// + assessmentName.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	qpFile, qpHeader, err := r.FormFile("questionPaper")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file(s)")
		return
	}
	defer qpFile.Close()

	akFile, akHeader, err := r.FormFile("answerSheet")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file(s)")
		return
	}
	defer akFile.Close()

	id, err := h.svc.CreateAssessment(r.Context(), r.FormValue("assessmentName"),
		FileUpload{Name: qpHeader.Filename, Content: qpFile},
		FileUpload{Name: akHeader.Filename, Content: akFile},
	)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "missing file(s)")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":      "Assessment created successfully",
		"assessmentId": id,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAssessments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetAssessment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrAssessmentNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UploadStudentAnswers handles POST /upload-student-answers: multipart
// answerFiles[] + candidateKeys[] + assessmentId. Key and file counts must
// match exactly; the batch is rejected whole before any sheet is stored.
func (h *Handler) UploadStudentAnswers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["answerFiles[]"]
	keys := r.MultipartForm.Value["candidateKeys[]"]
	assessmentID := r.FormValue("assessmentId")

	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no student answer sheets uploaded")
		return
	}
	if len(keys) == 0 || strings.TrimSpace(assessmentID) == "" {
		writeError(w, http.StatusBadRequest, "missing student data or assessment ID")
		return
	}
	if len(files) != len(keys) {
		writeError(w, http.StatusBadRequest, "mismatch between candidate keys and answer files")
		return
	}

	items := make([]IngestItem, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable answer sheet: "+fh.Filename)
			return
		}
		defer f.Close()
		items = append(items, IngestItem{
			CandidateKey: keys[i],
			File:         FileUpload{Name: fh.Filename, Content: f},
		})
	}

	report, err := h.svc.Ingest(r.Context(), assessmentID, items)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing student data or assessment ID")
		case errors.Is(err, ErrAssessmentNotFound):
			writeError(w, http.StatusNotFound, "assessment not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Student answer sheets uploaded",
		"results":  report.Results,
		"failures": report.Failures,
	})
}

func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetEvaluation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "candidateKey"))
	if err != nil {
		if errors.Is(err, ErrEvaluationNotFound) || errors.Is(err, ErrAssessmentNotFound) {
			writeError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req updateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	total, err := h.svc.UpdateEvaluation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "candidateKey"), req.Questions)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "questions are required")
		case errors.Is(err, ErrEvaluationNotFound), errors.Is(err, ErrAssessmentNotFound):
			writeError(w, http.StatusNotFound, "evaluation not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Evaluation updated successfully",
		"totalMarks": total,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
