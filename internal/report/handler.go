package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gradeboard/internal/assessment"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc resultsExporter
}

type resultsExporter interface {
	ExportResultsExcel(ctx context.Context, assessmentID string) ([]byte, string, error)
}

func NewHandler(svc resultsExporter) *Handler {
	return &Handler{svc: svc}
}

// ExportResults handles GET /api/assessments/{id}/results/export.
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.svc.ExportResultsExcel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, assessment.ErrAssessmentNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
