package collections_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"recipeforge/internal/collections"
	"recipeforge/internal/content"
	"recipeforge/internal/notifications"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/testsupport"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type fixture struct {
	store    *store.Store
	notifier *recordingNotifier
	svc      *collections.Service
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	return &fixture{
		store:    st,
		notifier: notifier,
		svc:      collections.NewService(cfg, st, nil, collections.WithNotifier(notifier)),
	}
}

func breakfastRule() rules.Rule {
	return rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"breakfast"}}
}

func ids(recipes []*content.Recipe) []string {
	out := make([]string, len(recipes))
	for i, recipe := range recipes {
		out[i] = recipe.ID
	}
	return out
}

func TestQualificationThresholdAndPublishAlwaysSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, f.store, rules.DimensionScene, "breakfast")
	testsupport.SeedRecipes(t, f.store, "Morning", 9, testsupport.Published(), testsupport.WithTags(tag.ID))
	testsupport.SeedRecipe(t, f.store, "Draft pancake", testsupport.WithTags(tag.ID))
	collection := testsupport.SeedCollection(t, f.store, "Breakfast", breakfastRule(), 10)

	q, err := f.svc.Qualify(ctx, collection.ID)
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if q.QualifiedStatus == collections.StatusQualified || q.Counts.Published != 9 || q.Counts.Pending != 1 {
		t.Fatalf("expected 9 published and insufficient, got %+v", q)
	}

	first, err := f.svc.Publish(ctx, collection.ID, false)
	if err != nil {
		t.Fatalf("Publish below minimum: %v", err)
	}
	if !first.Warning || first.Collection.Status != content.CollectionPublished || first.Collection.PublishedAt == nil {
		t.Fatalf("expected warning publish, got %+v", first)
	}

	testsupport.SeedRecipe(t, f.store, "Morning-10", testsupport.Published(), testsupport.WithTags(tag.ID))
	q, err = f.svc.Qualify(ctx, collection.ID)
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	if q.QualifiedStatus != collections.StatusQualified || q.TargetReached {
		t.Fatalf("expected qualified without reaching target, got %+v", q)
	}

	second, err := f.svc.Publish(ctx, collection.ID, false)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if second.Warning || second.Message != "collection published" {
		t.Fatalf("expected plain success, got %+v", second)
	}
	if !second.Collection.PublishedAt.Equal(*first.Collection.PublishedAt) {
		t.Fatalf("publishedAt moved from %v to %v", first.Collection.PublishedAt, second.Collection.PublishedAt)
	}
	stored, _ := f.store.GetCollection(ctx, collection.ID)
	if stored.CachedPublishedCount != 10 || stored.CachedAt == nil {
		t.Fatalf("expected refreshed cache, got %d at %v", stored.CachedPublishedCount, stored.CachedAt)
	}
	if len(f.notifier.events) != 2 || f.notifier.events[0] != notifications.EventCollectionPublished {
		t.Fatalf("expected two publish notifications, got %v", f.notifier.events)
	}
}

func TestEnforceMinRequired(t *testing.T) {
	f := newFixture(t, testsupport.WithEnforceMinRequired(true))
	ctx := context.Background()
	collection := testsupport.SeedCollection(t, f.store, "Empty", breakfastRule(), 3)

	if _, err := f.svc.Publish(ctx, collection.ID, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := f.store.GetCollection(ctx, collection.ID)
	if stored.Status != content.CollectionDraft {
		t.Fatalf("refused publish must not change status, got %s", stored.Status)
	}

	forced, err := f.svc.Publish(ctx, collection.ID, true)
	if err != nil {
		t.Fatalf("forced Publish: %v", err)
	}
	if forced.Warning || !strings.Contains(forced.Message, "by force") {
		t.Fatalf("unexpected forced result %+v", forced)
	}
}

func TestTagDimensionsCombineWithOr(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	breakfast := testsupport.SeedTag(t, f.store, rules.DimensionScene, "breakfast")
	steam := testsupport.SeedTag(t, f.store, rules.DimensionMethod, "steam")
	first := testsupport.SeedRecipe(t, f.store, "Porridge", testsupport.Published(), testsupport.WithTags(breakfast.ID))
	second := testsupport.SeedRecipe(t, f.store, "Dumplings", testsupport.Published(), testsupport.WithTags(steam.ID))
	testsupport.SeedRecipe(t, f.store, "Salad", testsupport.Published())
	collection := testsupport.SeedCollection(t, f.store, "Mixed", rules.CompositeRule{Parts: []rules.Rule{
		rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"breakfast"}},
		rules.TagRule{Dimension: rules.DimensionMethod, Slugs: []string{"steam"}},
	}}, 1)

	members, err := f.svc.Members(ctx, collection.ID, collections.MembersOptions{})
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	got := ids(members)
	slices.Sort(got)
	want := []string{first.ID, second.ID}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("expected exactly the two tagged recipes, got %v", got)
	}
}

func TestPinAndExcludeStayDisjoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, f.store, "Toast", testsupport.Published())
	collection := testsupport.SeedCollection(t, f.store, "Breakfast", breakfastRule(), 1)

	pinned, err := f.svc.Pin(ctx, collection.ID, []string{recipe.ID, recipe.ID})
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if !slices.Equal(pinned.PinnedRecipeIDs, []string{recipe.ID}) {
		t.Fatalf("unexpected pins %v", pinned.PinnedRecipeIDs)
	}
	excluded, err := f.svc.Exclude(ctx, collection.ID, []string{recipe.ID})
	if err != nil {
		t.Fatalf("Exclude: %v", err)
	}
	if len(excluded.PinnedRecipeIDs) != 0 || !slices.Equal(excluded.ExcludedRecipeIDs, []string{recipe.ID}) {
		t.Fatalf("exclude must unpin: %+v", excluded)
	}
	repinned, err := f.svc.Pin(ctx, collection.ID, []string{recipe.ID})
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if len(repinned.ExcludedRecipeIDs) != 0 || len(repinned.PinnedRecipeIDs) != 1 {
		t.Fatalf("pin must un-exclude: %+v", repinned)
	}
	unpinned, err := f.svc.Unpin(ctx, collection.ID, []string{recipe.ID})
	if err != nil || len(unpinned.PinnedRecipeIDs) != 0 {
		t.Fatalf("Unpin: %v %+v", err, unpinned)
	}

	if _, err := f.svc.Pin(ctx, collection.ID, []string{"missing"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("pinning an unknown recipe should be not found, got %v", err)
	}
	if _, err := f.svc.Exclude(ctx, collection.ID, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty exclude should fail validation, got %v", err)
	}
}

func TestMembersListPinnedFirstAndDropExcluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, f.store, rules.DimensionScene, "breakfast")
	older := testsupport.SeedRecipe(t, f.store, "Older", testsupport.Published(), testsupport.WithTags(tag.ID))
	newer := testsupport.SeedRecipe(t, f.store, "Newer", testsupport.Published(), testsupport.WithTags(tag.ID))
	pinned := testsupport.SeedRecipe(t, f.store, "Pinned", testsupport.Published())
	collection := testsupport.SeedCollection(t, f.store, "Breakfast", breakfastRule(), 1)

	if _, err := f.svc.Pin(ctx, collection.ID, []string{pinned.ID}); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	members, err := f.svc.Members(ctx, collection.ID, collections.MembersOptions{})
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if want := []string{pinned.ID, newer.ID, older.ID}; !slices.Equal(ids(members), want) {
		t.Fatalf("expected %v, got %v", want, ids(members))
	}

	if _, err := f.svc.Exclude(ctx, collection.ID, []string{newer.ID}); err != nil {
		t.Fatalf("Exclude: %v", err)
	}
	members, err = f.svc.Members(ctx, collection.ID, collections.MembersOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if !slices.Equal(ids(members), []string{pinned.ID}) {
		t.Fatalf("expected the pinned recipe only, got %v", ids(members))
	}
	q, _ := f.svc.Qualify(ctx, collection.ID)
	if q.Counts.Published != 2 {
		t.Fatalf("excluded recipe must not count, got %d", q.Counts.Published)
	}
}

func TestReorderChecksIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipes := testsupport.SeedRecipes(t, f.store, "Dish", 2, testsupport.Published())
	collection := testsupport.SeedCollection(t, f.store, "Pins", nil, 1)
	if _, err := f.svc.Pin(ctx, collection.ID, ids(recipes)); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	original := ids(recipes)
	reversed := []string{original[1], original[0]}

	got, err := f.svc.Reorder(ctx, collection.ID, original, reversed)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if !slices.Equal(got.PinnedRecipeIDs, reversed) {
		t.Fatalf("unexpected order %v", got.PinnedRecipeIDs)
	}
	if _, err := f.svc.Reorder(ctx, collection.ID, original, reversed); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("stale expected order should conflict, got %v", err)
	}
	if _, err := f.svc.Reorder(ctx, collection.ID, reversed, []string{original[0]}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("dropping an id should fail validation, got %v", err)
	}
	if _, err := f.svc.Reorder(ctx, "missing", nil, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown collection should be not found, got %v", err)
	}
}

func TestUnpublishKeepsCurationAndIsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, f.store, "Toast", testsupport.Published())
	collection := testsupport.SeedCollection(t, f.store, "Breakfast", breakfastRule(), 1)
	if _, err := f.svc.Pin(ctx, collection.ID, []string{recipe.ID}); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	published, err := f.svc.Publish(ctx, collection.ID, false)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := f.svc.Unpublish(ctx, collection.ID)
		if err != nil {
			t.Fatalf("Unpublish %d: %v", i, err)
		}
		if got.Status != content.CollectionDraft || len(got.PinnedRecipeIDs) != 1 || got.CachedPublishedCount != 1 {
			t.Fatalf("unexpected collection after unpublish %+v", got)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(*published.Collection.PublishedAt) {
			t.Fatal("unpublish must keep publishedAt")
		}
	}
}

func TestDryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, f.store, rules.DimensionTaste, "spicy")
	testsupport.SeedRecipes(t, f.store, "Hot", 3, testsupport.Published(), testsupport.WithTags(tag.ID))
	testsupport.SeedRecipe(t, f.store, "Hot draft", testsupport.WithTags(tag.ID))

	invalid, err := f.svc.DryRun(ctx, collections.DryRunRequest{Rule: rules.TagRule{Dimension: rules.DimensionTaste}})
	if err != nil {
		t.Fatalf("DryRun invalid: %v", err)
	}
	if invalid.Valid || len(invalid.Errors) == 0 {
		t.Fatalf("expected validation errors, got %+v", invalid)
	}

	valid, err := f.svc.DryRun(ctx, collections.DryRunRequest{
		Rule:       rules.TagRule{Dimension: rules.DimensionTaste, Slugs: []string{"spicy"}},
		SampleSize: 2,
	})
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if !valid.Valid || valid.Counts.Published != 3 || valid.Counts.Pending != 1 || len(valid.Sample) != 2 {
		t.Fatalf("unexpected dry run %+v", valid)
	}
	if valid.Description == "" {
		t.Fatal("expected a description")
	}
}

func TestDeleteTaxonomyOrphansCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, f.store, rules.DimensionScene, "breakfast")
	dependent := testsupport.SeedCollection(t, f.store, "Breakfast", breakfastRule(), 1)
	unrelated := testsupport.SeedCollection(t, f.store, "Dinner", rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"dinner"}}, 1)
	if _, err := f.svc.Publish(ctx, dependent.ID, true); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	orphaned, err := f.svc.DeleteTaxonomy(ctx, content.EntityTag, tag.ID)
	if err != nil {
		t.Fatalf("DeleteTaxonomy: %v", err)
	}
	if !slices.Equal(orphaned, []string{dependent.ID}) {
		t.Fatalf("unexpected orphaned set %v", orphaned)
	}
	got, _ := f.store.GetCollection(ctx, dependent.ID)
	if got.Rule != nil || got.Status != content.CollectionDraft {
		t.Fatalf("expected orphaned draft, got %+v", got)
	}
	if kept, _ := f.store.GetCollection(ctx, unrelated.ID); kept.Rule == nil {
		t.Fatal("unrelated collection lost its rule")
	}
	if last := f.notifier.events[len(f.notifier.events)-1]; last != notifications.EventCollectionOrphaned {
		t.Fatalf("expected orphan notification, got %v", f.notifier.events)
	}
	if _, err := f.svc.DeleteTaxonomy(ctx, content.EntityTag, tag.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestCreateCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	thai := testsupport.SeedTaxonomy(t, f.store, content.EntityCuisine, "thai")

	created, err := f.svc.Create(ctx, collections.CreateRequest{
		Title:     "  Thai favourites ",
		Rule:      rules.CuisineRule{Value: "thai"},
		CuisineID: thai.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "Thai favourites" || created.MinRequired != 10 || created.TargetCount != 30 || created.Status != content.CollectionDraft {
		t.Fatalf("unexpected collection %+v", created)
	}

	cases := []struct {
		name string
		req  collections.CreateRequest
	}{
		{"blank title", collections.CreateRequest{Title: "  "}},
		{"unknown cuisine", collections.CreateRequest{Title: "x", CuisineID: "missing"}},
		{"invalid rule", collections.CreateRequest{Title: "x", Rule: rules.TagRule{Dimension: rules.DimensionScene}}},
		{"target below minimum", collections.CreateRequest{Title: "x", MinRequired: 5, TargetCount: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tc.req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
