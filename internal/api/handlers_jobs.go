package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"recipeforge/internal/content"
	"recipeforge/internal/generation"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/translation"
)

func (s *Server) handleCreateGenerateJob(w http.ResponseWriter, r *http.Request) {
	var req generation.CreateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Generation.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, result)
}

func (s *Server) handleListGenerateJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.GenerateJobFilter{CollectionID: strings.TrimSpace(query.Get("collectionId"))}
	for _, value := range splitValues(query["status"]) {
		filter.Statuses = append(filter.Statuses, content.GenerateStatus(value))
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter.Limit = limit
	jobs, err := s.deps.Generation.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(jobs))
}

func (s *Server) handleGetGenerateJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Generation.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (s *Server) handleControlGenerateJob(w http.ResponseWriter, r *http.Request) {
	action, ok := generation.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		s.writeError(w, r, services.Validation("api", fmt.Sprintf("unknown action %q", chi.URLParam(r, "action"))))
		return
	}
	job, err := s.deps.Generation.Control(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (s *Server) handleCreateTranslationJob(w http.ResponseWriter, r *http.Request) {
	var req translation.CreateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Translation.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeData(w, status, result)
}

func (s *Server) handleBatchTranslationJobs(w http.ResponseWriter, r *http.Request) {
	var req translation.BatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Translation.CreateBatch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleListTranslationJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.TranslationJobFilter{
		EntityType: content.EntityType(strings.TrimSpace(query.Get("entityType"))),
		EntityID:   strings.TrimSpace(query.Get("entityId")),
		TargetLang: strings.TrimSpace(query.Get("lang")),
	}
	for _, value := range splitValues(query["status"]) {
		filter.Statuses = append(filter.Statuses, content.TranslationStatus(value))
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter.Limit = limit
	jobs, err := s.deps.Translation.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(jobs))
}

func (s *Server) handleGetTranslationJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Translation.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

type runRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleRunTranslationJob(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Mode == "" {
		req.Mode = r.URL.Query().Get("mode")
	}
	mode, ok := translation.ParseMode(req.Mode)
	if !ok {
		s.writeError(w, r, services.Validation("api", fmt.Sprintf("unknown run mode %q", req.Mode)))
		return
	}
	job, err := s.deps.Translation.Run(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if mode == translation.ModeAsync {
		status = http.StatusAccepted
	}
	writeData(w, status, job)
}

type runPendingRequest struct {
	Limit int `json:"limit"`
}

type runPendingResponse struct {
	Dispatched int `json:"dispatched"`
}

func (s *Server) handleRunPending(w http.ResponseWriter, r *http.Request) {
	var req runPendingRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Limit < 0 {
		s.writeError(w, r, services.Validation("api", "limit must not be negative"))
		return
	}
	count, err := s.deps.Translation.RunPending(r.Context(), req.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, runPendingResponse{Dispatched: count})
}

type controlRequest struct {
	Priority int `json:"priority"`
}

func (s *Server) handleControlTranslationJob(w http.ResponseWriter, r *http.Request) {
	action, ok := translation.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		s.writeError(w, r, services.Validation("api", fmt.Sprintf("unknown action %q", chi.URLParam(r, "action"))))
		return
	}
	var req controlRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.deps.Translation.Control(r.Context(), chi.URLParam(r, "id"), action, req.Priority)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

// splitValues flattens repeated and comma separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, services.Validation("api", fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return value, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
