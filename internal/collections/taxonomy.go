package collections

import (
	"context"

	"recipeforge/internal/content"
	"recipeforge/internal/logging"
	"recipeforge/internal/notifications"
)

// DeleteTaxonomy deletes a cuisine, location, tag or ingredient entry.
// Collections that depended on it are orphaned rather than removed: their
// rule and keys are cleared and they return to draft. The orphaned ids are
// returned.
func (s *Service) DeleteTaxonomy(ctx context.Context, kind content.EntityType, id string) ([]string, error) {
	entry, err := s.store.GetTaxonomy(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	orphaned, err := s.store.DeleteTaxonomy(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if orphaned == nil {
		orphaned = []string{}
	}
	s.logger.Info("taxonomy entry deleted",
		logging.String(logging.FieldEventType, "taxonomy_deleted"),
		logging.String(logging.FieldEntityType, string(kind)),
		logging.String(logging.FieldEntityID, id),
		logging.Int("orphaned", len(orphaned)),
	)
	if len(orphaned) == 0 {
		return orphaned, nil
	}
	for _, collectionID := range orphaned {
		logging.WarnWithContext(s.logger, "collection orphaned", "collection_orphaned",
			logging.String(logging.FieldCollectionID, collectionID),
			logging.String(logging.FieldEntityType, string(kind)),
			logging.String(logging.FieldErrorHint, "give the collection a new rule before publishing it again"),
		)
	}
	if err := s.notifier.Publish(ctx, notifications.EventCollectionOrphaned, notifications.Payload{
		"entityType": string(kind),
		"name":       entry.Name,
		"count":      len(orphaned),
	}); err != nil {
		s.logger.Debug("orphan notification failed", logging.Error(err))
	}
	return orphaned, nil
}
