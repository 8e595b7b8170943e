package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"recipeforge/internal/collections"
	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
)

// decodeRule parses an optional wire rule. Absent and null rules are nil.
func decodeRule(raw json.RawMessage) (rules.Rule, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	rule, err := rules.Decode(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "", "invalid rule", err)
	}
	return rule, nil
}

type createCollectionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Rule        json.RawMessage `json:"rule"`
	CuisineID   string          `json:"cuisineId"`
	LocationID  string          `json:"locationId"`
	MinRequired int             `json:"minRequired"`
	TargetCount int             `json:"targetCount"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := decodeRule(req.Rule)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	collection, err := s.deps.Collections.Create(r.Context(), collections.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Rule:        rule,
		CuisineID:   req.CuisineID,
		LocationID:  req.LocationID,
		MinRequired: req.MinRequired,
		TargetCount: req.TargetCount,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, collection)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Collections.List(r.Context(), content.CollectionStatus(strings.TrimSpace(r.URL.Query().Get("status"))))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := s.deps.Collections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, collection)
}

func (s *Server) handleQualify(w http.ResponseWriter, r *http.Request) {
	q, err := s.deps.Collections.Qualify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

type publishRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("force") == "true" {
		req.Force = true
	}
	result, err := s.deps.Collections.Publish(r.Context(), chi.URLParam(r, "id"), req.Force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	collection, err := s.deps.Collections.Unpublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, collection)
}

type curateRequest struct {
	RecipeIDs []string `json:"recipeIds"`
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request) {
	var req curateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var (
		collection *content.Collection
		err        error
	)
	switch chi.URLParam(r, "curation") {
	case "pin":
		collection, err = s.deps.Collections.Pin(r.Context(), id, req.RecipeIDs)
	case "unpin":
		collection, err = s.deps.Collections.Unpin(r.Context(), id, req.RecipeIDs)
	case "exclude":
		collection, err = s.deps.Collections.Exclude(r.Context(), id, req.RecipeIDs)
	default:
		collection, err = s.deps.Collections.Include(r.Context(), id, req.RecipeIDs)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, collection)
}

type reorderRequest struct {
	Expected []string `json:"expected"`
	Order    []string `json:"order"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	collection, err := s.deps.Collections.Reorder(r.Context(), chi.URLParam(r, "id"), req.Expected, req.Order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, collection)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recipes, err := s.deps.Collections.Members(r.Context(), chi.URLParam(r, "id"), collections.MembersOptions{
		PublishedOnly: r.URL.Query().Get("published") == "true",
		Limit:         limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(recipes))
}

type testRuleRequest struct {
	Rule       json.RawMessage `json:"rule"`
	CuisineID  string          `json:"cuisineId"`
	LocationID string          `json:"locationId"`
	Excluded   []string        `json:"excludedRecipeIds"`
	SampleSize int             `json:"sampleSize"`
}

// handleTestRule validates, describes and dry-runs a rule. A rule that does
// not decode is reported as invalid rather than as a failed request.
func (s *Server) handleTestRule(w http.ResponseWriter, r *http.Request) {
	var req testRuleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var rule rules.Rule
	if raw := strings.TrimSpace(string(req.Rule)); raw != "" && raw != "null" {
		decoded, err := rules.Decode(req.Rule)
		if err != nil {
			writeData(w, http.StatusOK, collections.DryRunResult{
				Errors: []string{err.Error()},
				Sample: []*content.Recipe{},
			})
			return
		}
		rule = decoded
	}
	result, err := s.deps.Collections.DryRun(r.Context(), collections.DryRunRequest{
		Rule:       rule,
		CuisineID:  req.CuisineID,
		LocationID: req.LocationID,
		Excluded:   req.Excluded,
		SampleSize: req.SampleSize,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
