package collections

import (
	"context"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/store"
)

// DryRunRequest tests a rule against the catalogue without storing it. The
// keys stand in for the ones a collection would carry.
type DryRunRequest struct {
	Rule       rules.Rule
	CuisineID  string
	LocationID string
	Excluded   []string
	SampleSize int
}

// DryRunResult reports a rule test. Counts and Sample are only set for a
// valid rule.
type DryRunResult struct {
	Valid       bool                 `json:"valid"`
	Errors      []string             `json:"errors"`
	Description string               `json:"description"`
	Counts      content.StatusCounts `json:"counts"`
	Sample      []*content.Recipe    `json:"sample"`
}

// DryRun validates and describes a rule and, when valid, counts what it
// would match and returns a sample of published matches.
func (s *Service) DryRun(ctx context.Context, req DryRunRequest) (*DryRunResult, error) {
	validation := rules.Validate(req.Rule)
	result := &DryRunResult{
		Valid:       validation.Valid,
		Errors:      validation.Errors,
		Description: rules.Describe(req.Rule),
		Sample:      []*content.Recipe{},
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if !result.Valid {
		return result, nil
	}
	pred, err := rules.Compile(ctx, req.Rule, rules.Context{
		CuisineID:  req.CuisineID,
		LocationID: req.LocationID,
		Excluded:   req.Excluded,
	}, s.store)
	if err != nil {
		return nil, err
	}
	if result.Counts, err = s.store.CountMembers(ctx, pred); err != nil {
		return nil, err
	}
	size := req.SampleSize
	if size <= 0 {
		size = s.sampleSize
	}
	sample, err := s.store.FindMembers(ctx, pred, store.MemberFilter{PublishedOnly: true, Limit: size})
	if err != nil {
		return nil, err
	}
	if sample != nil {
		result.Sample = sample
	}
	return result, nil
}
