package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recipeforge/internal/content"
	"recipeforge/internal/rules"
	"recipeforge/internal/services"
	"recipeforge/internal/store"
	"recipeforge/internal/testsupport"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestOpenCreatesSchemaOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)
	recipe := testsupport.SeedRecipe(t, first, "Mapo Tofu")
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	fetched, err := second.GetRecipe(context.Background(), recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe after reopen: %v", err)
	}
	if fetched.Title != "Mapo Tofu" {
		t.Fatalf("unexpected title %q", fetched.Title)
	}
}

func TestRecipeRoundTripWithTags(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, st, rules.DimensionScene, "breakfast")
	recipe := testsupport.SeedRecipe(t, st, "Congee", testsupport.WithTags(tag.ID, tag.ID))

	fetched, err := st.GetRecipe(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if len(fetched.TagIDs) != 1 || fetched.TagIDs[0] != tag.ID {
		t.Fatalf("expected one linked tag, got %v", fetched.TagIDs)
	}
	if fetched.Status != content.RecipeDraft || fetched.ReviewStatus != content.ReviewPending {
		t.Fatalf("unexpected defaults: %s/%s", fetched.Status, fetched.ReviewStatus)
	}
	if len(fetched.Steps) != 1 || fetched.Steps[0].Text != "Cook Congee" {
		t.Fatalf("unexpected steps %+v", fetched.Steps)
	}

	if _, err := st.GetRecipe(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExistingTitlesMatchesExactly(t *testing.T) {
	st := openStore(t)
	testsupport.SeedRecipe(t, st, "Pad Thai")

	existing, err := st.ExistingTitles(context.Background(), []string{"Pad Thai", "pad thai", "Green Curry"})
	if err != nil {
		t.Fatalf("ExistingTitles: %v", err)
	}
	if _, ok := existing["Pad Thai"]; !ok || len(existing) != 1 {
		t.Fatalf("expected one existing title, got %v", existing)
	}
}

func TestMembersFollowCompiledRule(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	breakfast := testsupport.SeedTag(t, st, rules.DimensionScene, "breakfast")
	steam := testsupport.SeedTag(t, st, rules.DimensionMethod, "steam")

	a := testsupport.SeedRecipe(t, st, "A", testsupport.WithTags(breakfast.ID), testsupport.Published())
	b := testsupport.SeedRecipe(t, st, "B", testsupport.WithTags(steam.ID), testsupport.Published())
	c := testsupport.SeedRecipe(t, st, "C", testsupport.WithTags(steam.ID))
	d := testsupport.SeedRecipe(t, st, "D", testsupport.Published())

	rule := rules.CompositeRule{Parts: []rules.Rule{
		rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"breakfast"}},
		rules.TagRule{Dimension: rules.DimensionMethod, Slugs: []string{"steam"}},
	}}
	pred, err := rules.Compile(ctx, rule, rules.Context{Pinned: []string{d.ID}, Excluded: []string{b.ID}}, st)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	counts, err := st.CountMembers(ctx, pred)
	if err != nil {
		t.Fatalf("CountMembers: %v", err)
	}
	if counts.Published != 2 || counts.Pending != 1 || counts.Draft != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	members, err := st.FindMembers(ctx, pred, store.MemberFilter{PublishedOnly: true})
	if err != nil {
		t.Fatalf("FindMembers: %v", err)
	}
	got := map[string]bool{}
	for _, member := range members {
		got[member.ID] = true
	}
	if !got[a.ID] || !got[d.ID] || got[b.ID] || got[c.ID] {
		t.Fatalf("unexpected members %v", got)
	}
}

func TestGenerateJobActiveCollectionUniqueness(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	collection := testsupport.SeedCollection(t, st, "Breakfast", nil, 10)

	first := &content.GenerateJob{SourceType: content.SourceCollection, CollectionID: collection.ID, RecipeNames: []string{"a"}}
	if err := st.InsertGenerateJob(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := &content.GenerateJob{SourceType: content.SourceCollection, CollectionID: collection.ID, RecipeNames: []string{"b"}}
	if err := st.InsertGenerateJob(ctx, second); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	ok, err := st.TransitionGenerateJob(ctx, first.ID, []content.GenerateStatus{content.GeneratePending}, content.GeneratePaused, store.GenerateTransition{})
	if err != nil || !ok {
		t.Fatalf("pause transition: ok=%v err=%v", ok, err)
	}
	if err := st.InsertGenerateJob(ctx, second); err != nil {
		t.Fatalf("insert after pause: %v", err)
	}
	_, err = st.TransitionGenerateJob(ctx, first.ID, []content.GenerateStatus{content.GeneratePaused}, content.GenerateRunning, store.GenerateTransition{})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict resuming alongside an active job, got %v", err)
	}
}

func TestRecordGenerateItemKeepsCountersConsistent(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	job := &content.GenerateJob{SourceType: content.SourceManual, RecipeNames: []string{"one", "two"}}
	if err := st.InsertGenerateJob(ctx, job); err != nil {
		t.Fatalf("insert: %v", err)
	}

	recipe := &content.Recipe{Title: "one", Source: content.SourceAI}
	updated, err := st.RecordGenerateItem(ctx, job.ID, content.ItemResult{Index: 0, Name: "one", Success: true}, recipe)
	if err != nil {
		t.Fatalf("record success: %v", err)
	}
	if updated.SuccessCount != 1 || updated.Results[0].RecipeID != recipe.ID {
		t.Fatalf("unexpected job after success: %+v", updated)
	}
	updated, err = st.RecordGenerateItem(ctx, job.ID, content.ItemResult{Index: 1, Name: "two", Error: "boom"}, nil)
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if updated.FailedCount != 1 || updated.Cursor() != 2 {
		t.Fatalf("unexpected job after failure: %+v", updated)
	}
	if _, err := st.RecordGenerateItem(ctx, job.ID, content.ItemResult{Index: 2}, nil); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state past the last item, got %v", err)
	}

	recipes, err := st.RecipesByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RecipesByJob: %v", err)
	}
	if len(recipes) != 1 || recipes[0].GenerateJobID != job.ID {
		t.Fatalf("unexpected job recipes %+v", recipes)
	}
}

func TestInsertTranslationJobIsIdempotentWhileActive(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, st, "Laksa")

	job := &content.TranslationJob{EntityType: content.EntityRecipe, EntityID: recipe.ID, TargetLang: "fr", Priority: 5}
	first, created, err := st.InsertTranslationJob(ctx, job)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	again, created, err := st.InsertTranslationJob(ctx, job)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("expected existing job %s, got %s (created=%v)", first.ID, again.ID, created)
	}

	ok, err := st.TransitionTranslationJob(ctx, first.ID, []content.TranslationStatus{content.TranslationPending}, content.TranslationCancelled, store.TranslationTransition{MarkCompleted: true})
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}
	fresh, created, err := st.InsertTranslationJob(ctx, job)
	if err != nil || !created || fresh.ID == first.ID {
		t.Fatalf("expected a new job after cancel: created=%v err=%v", created, err)
	}
}

func TestListTranslationJobsDequeueOrder(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	recipes := testsupport.SeedRecipes(t, st, "dish", 3)

	low, _, _ := st.InsertTranslationJob(ctx, &content.TranslationJob{EntityType: content.EntityRecipe, EntityID: recipes[0].ID, TargetLang: "de", Priority: 1})
	older, _, _ := st.InsertTranslationJob(ctx, &content.TranslationJob{EntityType: content.EntityRecipe, EntityID: recipes[1].ID, TargetLang: "de", Priority: 5})
	newer, _, _ := st.InsertTranslationJob(ctx, &content.TranslationJob{EntityType: content.EntityRecipe, EntityID: recipes[2].ID, TargetLang: "de", Priority: 5})

	jobs, err := st.ListTranslationJobs(ctx, store.TranslationJobFilter{Statuses: []content.TranslationStatus{content.TranslationPending}})
	if err != nil {
		t.Fatalf("ListTranslationJobs: %v", err)
	}
	want := []string{low.ID, newer.ID, older.ID}
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(jobs))
	}
	for i, id := range want {
		if jobs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, jobs[i].ID)
		}
	}
}

func TestCompleteTranslationUpdatesEntityStatus(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, st, "Pho")
	job, _, err := st.InsertTranslationJob(ctx, &content.TranslationJob{EntityType: content.EntityRecipe, EntityID: recipe.ID, TargetLang: "ja", Priority: 5})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	translation := content.Translation{EntityType: content.EntityRecipe, EntityID: recipe.ID, Lang: "ja", Content: map[string]any{"title": "フォー"}}
	ok, err := st.CompleteTranslation(ctx, job.ID, translation)
	if err != nil || ok {
		t.Fatalf("completing a pending job should be refused: ok=%v err=%v", ok, err)
	}
	if _, err := st.GetTranslation(ctx, content.EntityRecipe, recipe.ID, "ja"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no stored translation, got %v", err)
	}

	if ok, err := st.TransitionTranslationJob(ctx, job.ID, []content.TranslationStatus{content.TranslationPending}, content.TranslationProcessing, store.TranslationTransition{MarkStarted: true}); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}
	score := 0.9
	translation.QualityScore = &score
	ok, err = st.CompleteTranslation(ctx, job.ID, translation)
	if err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}

	stored, err := st.GetTranslation(ctx, content.EntityRecipe, recipe.ID, "ja")
	if err != nil {
		t.Fatalf("GetTranslation: %v", err)
	}
	if stored.Content["title"] != "フォー" || stored.QualityScore == nil || *stored.QualityScore != 0.9 {
		t.Fatalf("unexpected translation %+v", stored)
	}
	updated, err := st.GetRecipe(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if updated.TranslationStatus["ja"] != string(content.TranslationCompleted) {
		t.Fatalf("unexpected translation status %v", updated.TranslationStatus)
	}
	finished, err := st.GetTranslationJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetTranslationJob: %v", err)
	}
	if finished.Status != content.TranslationCompleted || finished.CompletedAt == nil {
		t.Fatalf("unexpected job %+v", finished)
	}
}

func TestLoadSourceShapes(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, st, "Bibimbap")
	tag := testsupport.SeedTag(t, st, rules.DimensionTaste, "spicy")

	source, err := st.LoadSource(ctx, content.EntityRecipe, recipe.ID)
	if err != nil {
		t.Fatalf("LoadSource recipe: %v", err)
	}
	if source["title"] != "Bibimbap" {
		t.Fatalf("unexpected title %v", source["title"])
	}
	if steps, ok := source["steps"].([]any); !ok || len(steps) != 1 {
		t.Fatalf("unexpected steps %#v", source["steps"])
	}

	source, err = st.LoadSource(ctx, content.EntityTag, tag.ID)
	if err != nil {
		t.Fatalf("LoadSource tag: %v", err)
	}
	if source["name"] != "spicy" {
		t.Fatalf("unexpected tag source %v", source)
	}
}

func TestPublishSetsPublishedAtOnce(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	collection := testsupport.SeedCollection(t, st, "Soups", nil, 1)

	first, err := st.PublishCollection(ctx, collection.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if first.PublishedAt == nil {
		t.Fatal("expected publishedAt to be set")
	}
	if _, err := st.UnpublishCollection(ctx, collection.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	second, err := st.PublishCollection(ctx, collection.ID)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if !second.PublishedAt.Equal(*first.PublishedAt) {
		t.Fatalf("publishedAt moved from %v to %v", first.PublishedAt, second.PublishedAt)
	}
	if _, err := st.PublishCollection(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderPinnedDetectsConcurrentChange(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	collection := testsupport.SeedCollection(t, st, "Noodles", nil, 1)
	if _, err := st.UpdateCuration(ctx, collection.ID, func(_, excluded []string) ([]string, []string, error) {
		return []string{"a", "b"}, excluded, nil
	}); err != nil {
		t.Fatalf("UpdateCuration: %v", err)
	}

	updated, err := st.ReorderPinned(ctx, collection.ID, []string{"a", "b"}, []string{"b", "a"})
	if err != nil {
		t.Fatalf("ReorderPinned: %v", err)
	}
	if updated.PinnedRecipeIDs[0] != "b" {
		t.Fatalf("unexpected order %v", updated.PinnedRecipeIDs)
	}
	if _, err := st.ReorderPinned(ctx, collection.ID, []string{"a", "b"}, []string{"a", "b"}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict on stale order, got %v", err)
	}
}

func TestDeleteTaxonomyOrphansDependentCollections(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	tag := testsupport.SeedTag(t, st, rules.DimensionScene, "brunch")
	recipe := testsupport.SeedRecipe(t, st, "Eggs", testsupport.WithTags(tag.ID))
	dependent := testsupport.SeedCollection(t, st, "Brunch", rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"brunch"}}, 1)
	unrelated := testsupport.SeedCollection(t, st, "Dinner", rules.TagRule{Dimension: rules.DimensionScene, Slugs: []string{"dinner"}}, 1)
	if _, err := st.PublishCollection(ctx, dependent.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	orphaned, err := st.DeleteTaxonomy(ctx, content.EntityTag, tag.ID)
	if err != nil {
		t.Fatalf("DeleteTaxonomy: %v", err)
	}
	if len(orphaned) != 1 || orphaned[0] != dependent.ID {
		t.Fatalf("unexpected orphaned set %v", orphaned)
	}
	got, err := st.GetCollection(ctx, dependent.ID)
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Rule != nil || got.Status != content.CollectionDraft {
		t.Fatalf("expected orphaned draft collection, got %+v", got)
	}
	still, err := st.GetCollection(ctx, unrelated.ID)
	if err != nil || still.Rule == nil {
		t.Fatalf("unrelated collection should keep its rule: %+v %v", still, err)
	}
	untagged, err := st.GetRecipe(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if len(untagged.TagIDs) != 0 {
		t.Fatalf("expected tag link removed, got %v", untagged.TagIDs)
	}
}

func TestTaskQueueClaimOrderAndReclaim(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mustEnqueue := func(ref string, priority int, created time.Time) {
		t.Helper()
		ok, err := st.EnqueueTask(ctx, content.TaskTranslate, ref, priority, created, base)
		if err != nil || !ok {
			t.Fatalf("enqueue %s: ok=%v err=%v", ref, ok, err)
		}
	}
	mustEnqueue("old", 5, base)
	mustEnqueue("new", 5, base.Add(time.Minute))
	mustEnqueue("urgent", 1, base)

	if ok, err := st.EnqueueTask(ctx, content.TaskTranslate, "old", 5, base, base); err != nil || ok {
		t.Fatalf("duplicate active task should be ignored: ok=%v err=%v", ok, err)
	}

	var order []string
	for i := 0; i < 3; i++ {
		task, err := st.ClaimTask(ctx, content.TaskTranslate)
		if err != nil || task == nil {
			t.Fatalf("claim %d: task=%v err=%v", i, task, err)
		}
		if task.Status != content.TaskRunning || task.Attempts != 1 {
			t.Fatalf("unexpected claimed task %+v", task)
		}
		order = append(order, task.RefID)
	}
	want := []string{"urgent", "new", "old"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("claim order %v, want %v", order, want)
		}
	}
	if task, err := st.ClaimTask(ctx, content.TaskTranslate); err != nil || task != nil {
		t.Fatalf("expected empty queue, got %v %v", task, err)
	}

	reclaimed, err := st.ReclaimStaleTasks(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReclaimStaleTasks: %v", err)
	}
	if reclaimed != 3 {
		t.Fatalf("expected 3 reclaimed, got %d", reclaimed)
	}
	counts, err := st.CountTasks(ctx)
	if err != nil {
		t.Fatalf("CountTasks: %v", err)
	}
	if counts[content.TaskTranslate][content.TaskQueued] != 3 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestEnqueueWhileRunningRequeuesOnFinish(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if ok, err := st.EnqueueTask(ctx, content.TaskGenerate, "job-1", 0, base, base); err != nil || !ok {
		t.Fatalf("enqueue: ok=%v err=%v", ok, err)
	}
	running, err := st.ClaimTask(ctx, content.TaskGenerate)
	if err != nil || running == nil {
		t.Fatalf("claim: %v %v", running, err)
	}
	if ok, err := st.EnqueueTask(ctx, content.TaskGenerate, "job-1", 0, base, base); err != nil || ok {
		t.Fatalf("second enqueue should not add a row: ok=%v err=%v", ok, err)
	}
	active, err := st.ActiveTask(ctx, content.TaskGenerate, "job-1")
	if err != nil || active == nil || !active.Rerun || active.Status != content.TaskRunning {
		t.Fatalf("expected running task flagged for rerun, got %+v %v", active, err)
	}

	if err := st.CompleteTask(ctx, running.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	requeued, err := st.ActiveTask(ctx, content.TaskGenerate, "job-1")
	if err != nil || requeued == nil {
		t.Fatalf("expected task back in the queue, got %v %v", requeued, err)
	}
	if requeued.ID != running.ID || requeued.Status != content.TaskQueued || requeued.Rerun || requeued.Attempts != 0 {
		t.Fatalf("unexpected requeued task %+v", requeued)
	}

	again, err := st.ClaimTask(ctx, content.TaskGenerate)
	if err != nil || again == nil || again.ID != running.ID {
		t.Fatalf("reclaim requeued task: %v %v", again, err)
	}
	if err := st.CompleteTask(ctx, again.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if done, err := st.ActiveTask(ctx, content.TaskGenerate, "job-1"); err != nil || done != nil {
		t.Fatalf("expected no active task, got %+v %v", done, err)
	}
}

func TestConcurrentGenerateJobInsertsAdmitOne(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	collection := testsupport.SeedCollection(t, st, "Brunch", nil, 10)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := &content.GenerateJob{SourceType: content.SourceCollection, CollectionID: collection.ID, RecipeNames: []string{"dish"}}
			err := st.InsertGenerateJob(ctx, job)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, services.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected insert errors: %v", others)
	}
	if created != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 insert and %d conflicts, got %d and %d", workers-1, created, conflicts)
	}
	jobs, err := st.ListGenerateJobs(ctx, store.GenerateJobFilter{CollectionID: collection.ID})
	if err != nil {
		t.Fatalf("ListGenerateJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job row, got %d", len(jobs))
	}
}

func TestConcurrentTranslationInsertsCoalesce(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	recipe := testsupport.SeedRecipe(t, st, "Bibimbap")

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
		errs    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, fresh, err := st.InsertTranslationJob(ctx, &content.TranslationJob{
				EntityType: content.EntityRecipe, EntityID: recipe.ID, TargetLang: "ko", Priority: 5,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if fresh {
				created++
			}
			ids[job.ID] = struct{}{}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected insert errors: %v", errs)
	}
	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected one created job shared by all callers, got created=%d ids=%d", created, len(ids))
	}
	jobs, err := st.ListTranslationJobs(ctx, store.TranslationJobFilter{EntityID: recipe.ID})
	if err != nil {
		t.Fatalf("ListTranslationJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job row, got %d", len(jobs))
	}
}
