package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 64 << 10
)

type submitRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stepResponse struct {
	Description string   `json:"description"`
	Reasoning   *string  `json:"reasoning"`
	Status      string   `json:"status"`
	Result      string   `json:"result"`
	Confidence  *float64 `json:"confidence"`
	StartTime   string   `json:"start_time"`
	EndTime     *string  `json:"end_time"`
	Duration    *float64 `json:"duration"`
}

type researchSummary struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type researchResponse struct {
	researchSummary
	Summary     string              `json:"summary"`
	SummaryHTML string              `json:"summary_html"`
	Steps       []stepResponse      `json:"steps"`
	Profiles    []directory.Profile `json:"profiles"`
	Insights    []string            `json:"insights"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubmit(w, r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)

	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	q, err := s.submitter.Submit(r.Context(), req.Query)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, submitResponse{ID: q.ID, Status: string(q.Status)})
}

// decodeSubmit reads a JSON body, or the "query" form field for any other
// content type.
func decodeSubmit(w http.ResponseWriter, r *http.Request) (*submitRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return &submitRequest{Query: r.PostFormValue("query")}, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "query is required"
	case "max":
		return fmt.Sprintf("query must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("query failed %s validation", fe.Tag())
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newResearchResponse(report))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	queries, err := s.store.ListResearch(r.Context(), limit)
	if err != nil {
		s.storeError(w, err)
		return
	}

	out := make([]researchSummary, len(queries))
	for i, q := range queries {
		out[i] = newResearchSummary(q)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"research": out})
}

func newResearchSummary(q database.ResearchQuery) researchSummary {
	return researchSummary{
		ID:        q.ID,
		Query:     q.Query,
		Status:    string(q.Status),
		CreatedAt: q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: q.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newResearchResponse(rep *database.Report) researchResponse {
	steps := make([]stepResponse, len(rep.Steps))
	for i, st := range rep.Steps {
		steps[i] = newStepResponse(st)
	}
	profiles := rep.Profiles
	if profiles == nil {
		profiles = []directory.Profile{}
	}
	insights := rep.Insights
	if insights == nil {
		insights = []string{}
	}

	return researchResponse{
		researchSummary: newResearchSummary(rep.ResearchQuery),
		Summary:         rep.Summary,
		SummaryHTML:     renderMarkdown(rep.Summary),
		Steps:           steps,
		Profiles:        profiles,
		Insights:        insights,
	}
}

func newStepResponse(st trace.Record) stepResponse {
	out := stepResponse{
		Description: st.Description,
		Status:      string(st.Status),
		Result:      st.Result.Text(),
		Confidence:  st.Confidence,
		StartTime:   st.StartTime.UTC().Format(time.RFC3339Nano),
		Duration:    st.Duration,
	}
	if st.Reasoning != "" {
		reasoning := st.Reasoning
		out.Reasoning = &reasoning
	}
	if st.EndTime != nil {
		end := st.EndTime.UTC().Format(time.RFC3339Nano)
		out.EndTime = &end
	}
	return out
}
