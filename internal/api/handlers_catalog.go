package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/validation"
)

// HealthResponse reports liveness and the state of the store and queue.
type HealthResponse struct {
	Status        string           `json:"status"`
	Store         string           `json:"store"`
	Tasks         store.TaskCounts `json:"tasks,omitempty"`
	UptimeSeconds int64            `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Store:         "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		writeData(w, http.StatusServiceUnavailable, resp)
		return
	}
	if counts, err := s.deps.Store.CountTasks(r.Context()); err == nil {
		resp.Tasks = counts
	}
	writeData(w, http.StatusOK, resp)
}

func taxonomyKind(r *http.Request) (content.EntityType, error) {
	kind := content.EntityType(strings.ToLower(chi.URLParam(r, "kind")))
	if !kind.IsTaxonomy() {
		return "", services.Validation("api", fmt.Sprintf("%q is not a taxonomy type", kind))
	}
	return kind, nil
}

func (s *Server) handleListTaxonomy(w http.ResponseWriter, r *http.Request) {
	kind, err := taxonomyKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.deps.Store.ListTaxonomy(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(entries))
}

type createTaxonomyRequest struct {
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Dimension   string `json:"dimension"`
}

func (s *Server) handleCreateTaxonomy(w http.ResponseWriter, r *http.Request) {
	kind, err := taxonomyKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createTaxonomyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(&req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry := &content.Taxonomy{
		Type:        kind,
		Slug:        strings.TrimSpace(req.Slug),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Dimension:   rules.Dimension(strings.ToLower(strings.TrimSpace(req.Dimension))),
	}
	if err := s.deps.Store.CreateTaxonomy(r.Context(), entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, entry)
}

type deleteTaxonomyResponse struct {
	Deleted  string   `json:"deleted"`
	Orphaned []string `json:"orphanedCollectionIds"`
}

func (s *Server) handleDeleteTaxonomy(w http.ResponseWriter, r *http.Request) {
	kind, err := taxonomyKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	orphaned, err := s.deps.Collections.DeleteTaxonomy(r.Context(), kind, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, deleteTaxonomyResponse{Deleted: id, Orphaned: orphaned})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.deps.Store.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, recipe)
}

// handleApproveRecipe approves a recipe's review and publishes it, which is
// what makes it count towards collection qualification.
func (s *Server) handleApproveRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.deps.Store.SetRecipeReview(r.Context(), chi.URLParam(r, "id"), content.RecipePublished, content.ReviewApproved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("recipe approved",
		logging.String(logging.FieldEventType, "recipe_approved"),
		logging.String(logging.FieldEntityID, recipe.ID),
	)
	writeData(w, http.StatusOK, recipe)
}
