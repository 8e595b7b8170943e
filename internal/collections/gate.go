package collections

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/metrics"
	"recipeforge/internal/notifications"
	"recipeforge/internal/services"
)

// QualifiedStatus is the outcome of comparing live counts to thresholds.
type QualifiedStatus string

const (
	StatusInsufficient QualifiedStatus = "insufficient"
	StatusQualified    QualifiedStatus = "qualified"
)

// Qualification is a live count of a collection's members.
type Qualification struct {
	CollectionID    string               `json:"collectionId"`
	Counts          content.StatusCounts `json:"counts"`
	MinRequired     int                  `json:"minRequired"`
	TargetCount     int                  `json:"targetCount"`
	QualifiedStatus QualifiedStatus      `json:"qualifiedStatus"`
	TargetReached   bool                 `json:"targetReached"`
	CheckedAt       time.Time            `json:"checkedAt"`
}

// Qualified reports whether the published count meets the minimum.
func (q *Qualification) Qualified() bool {
	return q.QualifiedStatus == StatusQualified
}

// PublishResult reports a publish and the qualification it was based on.
type PublishResult struct {
	Collection    *content.Collection `json:"collection"`
	Qualification *Qualification      `json:"qualification"`
	Warning       bool                `json:"warning"`
	Message       string              `json:"message"`
}

// Qualify counts the collection's members by editorial state and compares
// the published count with the thresholds. The cached published count is
// refreshed with the result.
func (s *Service) Qualify(ctx context.Context, id string) (*Qualification, error) {
	collection, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.qualify(ctx, collection)
}

func (s *Service) qualify(ctx context.Context, collection *content.Collection) (*Qualification, error) {
	pred, err := s.predicate(ctx, collection)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountMembers(ctx, pred)
	if err != nil {
		return nil, err
	}
	q := &Qualification{
		CollectionID:    collection.ID,
		Counts:          counts,
		MinRequired:     collection.MinRequired,
		TargetCount:     collection.TargetCount,
		QualifiedStatus: StatusInsufficient,
		TargetReached:   collection.TargetCount > 0 && counts.Published >= collection.TargetCount,
		CheckedAt:       s.now().UTC(),
	}
	if counts.Published >= collection.MinRequired {
		q.QualifiedStatus = StatusQualified
	}
	if err := s.store.SetCollectionCache(ctx, collection.ID, counts.Published, q.CheckedAt); err != nil {
		logging.WarnWithContext(s.logger, "collection cache not refreshed", "collection_cache_failed",
			logging.String(logging.FieldCollectionID, collection.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the cache is informational; the next qualify refreshes it"),
		)
	}
	return q, nil
}

// Publish publishes the collection whatever its qualification, unless
// collections.enforce_min_required is set and the publish is not forced.
// An unqualified publish is reported with a warning message unless forced.
// PublishedAt is set by the first publish only.
func (s *Service) Publish(ctx context.Context, id string, force bool) (*PublishResult, error) {
	collection, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := s.qualify(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !q.Qualified() && !force && s.enforceMinRequired {
		return nil, services.Validation("collections", fmt.Sprintf(
			"collection has %d published recipes; %d required (use force to publish anyway)",
			q.Counts.Published, q.MinRequired))
	}

	published, err := s.store.PublishCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &PublishResult{Collection: published, Qualification: q}
	switch {
	case q.Qualified():
		result.Message = "collection published"
	case force:
		result.Message = fmt.Sprintf("collection published by force with %d of %d required recipes", q.Counts.Published, q.MinRequired)
	default:
		result.Warning = true
		result.Message = fmt.Sprintf("collection published with only %d of %d required recipes", q.Counts.Published, q.MinRequired)
	}

	metrics.CollectionPublishes.WithLabelValues(strconv.FormatBool(q.Qualified())).Inc()
	if q.Qualified() {
		s.logger.Info("collection published",
			logging.String(logging.FieldEventType, "collection_published"),
			logging.String(logging.FieldCollectionID, id),
			logging.Int("published", q.Counts.Published),
		)
	} else {
		logging.WarnWithContext(s.logger, "collection published below minimum", "collection_published_unqualified",
			logging.String(logging.FieldCollectionID, id),
			logging.Int("published", q.Counts.Published),
			logging.Int("min_required", q.MinRequired),
			logging.Bool("forced", force),
			logging.String(logging.FieldErrorHint, "add or approve recipes until the minimum is reached"),
		)
	}
	if err := s.notifier.Publish(ctx, notifications.EventCollectionPublished, notifications.Payload{
		"collectionId": id,
		"title":        published.Title,
		"published":    q.Counts.Published,
		"minRequired":  q.MinRequired,
		"qualified":    q.Qualified(),
	}); err != nil {
		s.logger.Debug("publish notification failed", logging.Error(err))
	}
	return result, nil
}

// Unpublish returns the collection to draft. Caches and curation lists are
// kept, and unpublishing a draft is harmless.
func (s *Service) Unpublish(ctx context.Context, id string) (*content.Collection, error) {
	collection, err := s.store.UnpublishCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection unpublished",
		logging.String(logging.FieldEventType, "collection_unpublished"),
		logging.String(logging.FieldCollectionID, id),
	)
	return collection, nil
}
