package content

import (
	"slices"
	"time"

	"recipeforge/internal/rules"
)

// GenerateStatus is the lifecycle of a generation job.
type GenerateStatus string

const (
	GeneratePending   GenerateStatus = "pending"
	GenerateRunning   GenerateStatus = "running"
	GeneratePaused    GenerateStatus = "paused"
	GenerateCompleted GenerateStatus = "completed"
	GeneratePartial   GenerateStatus = "partial"
	GenerateFailed    GenerateStatus = "failed"
)

// GenerateActiveStatuses are the statuses covered by the one-active-job-per-collection index.
var GenerateActiveStatuses = []GenerateStatus{GeneratePending, GenerateRunning}

// Terminal reports whether no further transition is allowed.
func (s GenerateStatus) Terminal() bool {
	return s == GenerateCompleted || s == GeneratePartial || s == GenerateFailed
}

// ParseGenerateStatus validates a status string.
func ParseGenerateStatus(value string) (GenerateStatus, bool) {
	status := GenerateStatus(value)
	switch status {
	case GeneratePending, GenerateRunning, GeneratePaused, GenerateCompleted, GeneratePartial, GenerateFailed:
		return status, true
	}
	return "", false
}

// SourceType records why a generation job exists.
type SourceType string

const (
	SourceCollection SourceType = "collection"
	SourceManual     SourceType = "manual"
)

// ReviewMode decides how generated recipes enter the catalogue.
type ReviewMode string

const (
	// ReviewManual stores generated recipes as drafts awaiting review.
	ReviewManual ReviewMode = "manual"
	// ReviewAuto stores generated recipes as published and approved.
	ReviewAuto ReviewMode = "auto"
)

// LockedTags are constraints applied to every recipe a job produces.
type LockedTags struct {
	CuisineID  string                       `json:"cuisineId,omitempty"`
	LocationID string                       `json:"locationId,omitempty"`
	ReviewMode ReviewMode                   `json:"reviewMode,omitempty"`
	Tags       map[rules.Dimension][]string `json:"tags,omitempty"`
}

// EffectiveReviewMode defaults an empty review mode to manual.
func (l LockedTags) EffectiveReviewMode() ReviewMode {
	if l.ReviewMode == "" {
		return ReviewManual
	}
	return l.ReviewMode
}

// ItemResult is one entry of a generation job's outcome log.
type ItemResult struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	RecipeID   string    `json:"recipeId,omitempty"`
	Error      string    `json:"error,omitempty"`
	ImageFails int       `json:"imageFailures,omitempty"`
	FinishedAt time.Time `json:"finishedAt"`
}

// GenerateJob is a batch request to produce recipes through the generator.
type GenerateJob struct {
	ID           string         `json:"id"`
	SourceType   SourceType     `json:"sourceType"`
	CollectionID string         `json:"collectionId,omitempty"`
	RecipeNames  []string       `json:"recipeNames"`
	LockedTags   LockedTags     `json:"lockedTags"`
	Status       GenerateStatus `json:"status"`
	TotalCount   int            `json:"totalCount"`
	SuccessCount int            `json:"successCount"`
	FailedCount  int            `json:"failedCount"`
	Results      []ItemResult   `json:"results"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	StartedAt    *time.Time     `json:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Cursor is the index of the next item to process.
func (j *GenerateJob) Cursor() int {
	return j.SuccessCount + j.FailedCount
}

// FinalStatus derives the terminal status from the counters.
func (j *GenerateJob) FinalStatus() GenerateStatus {
	switch {
	case j.FailedCount == 0:
		return GenerateCompleted
	case j.SuccessCount > 0:
		return GeneratePartial
	default:
		return GenerateFailed
	}
}

// EntityType names a translatable entity.
type EntityType string

const (
	EntityRecipe     EntityType = "recipe"
	EntityCollection EntityType = "collection"
	EntityCuisine    EntityType = "cuisine"
	EntityLocation   EntityType = "location"
	EntityTag        EntityType = "tag"
	EntityIngredient EntityType = "ingredient"
)

var entityTypes = []EntityType{EntityRecipe, EntityCollection, EntityCuisine, EntityLocation, EntityTag, EntityIngredient}

// EntityTypes lists every translatable entity type.
func EntityTypes() []EntityType {
	return slices.Clone(entityTypes)
}

// ParseEntityType validates an entity type string.
func ParseEntityType(value string) (EntityType, bool) {
	candidate := EntityType(value)
	if slices.Contains(entityTypes, candidate) {
		return candidate, true
	}
	return "", false
}

// IsTaxonomy reports whether the entity type is a taxonomy table.
func (e EntityType) IsTaxonomy() bool {
	switch e {
	case EntityCuisine, EntityLocation, EntityTag, EntityIngredient:
		return true
	}
	return false
}

// TranslationStatus is the lifecycle of a translation job.
type TranslationStatus string

const (
	TranslationPending    TranslationStatus = "pending"
	TranslationProcessing TranslationStatus = "processing"
	TranslationCompleted  TranslationStatus = "completed"
	TranslationFailed     TranslationStatus = "failed"
	TranslationCancelled  TranslationStatus = "cancelled"
)

// TranslationActiveStatuses are the statuses covered by the one-active-job-per-tuple index.
var TranslationActiveStatuses = []TranslationStatus{TranslationPending, TranslationProcessing}

// ParseTranslationStatus validates a status string.
func ParseTranslationStatus(value string) (TranslationStatus, bool) {
	status := TranslationStatus(value)
	switch status {
	case TranslationPending, TranslationProcessing, TranslationCompleted, TranslationFailed, TranslationCancelled:
		return status, true
	}
	return "", false
}

const (
	DefaultPriority   = 5
	DefaultMaxRetries = 3
	MinPriority       = 1
	MaxPriority       = 10
)

// TranslationJob produces one target-language variant of one entity.
type TranslationJob struct {
	ID            string            `json:"id"`
	EntityType    EntityType        `json:"entityType"`
	EntityID      string            `json:"entityId"`
	TargetLang    string            `json:"targetLang"`
	Status        TranslationStatus `json:"status"`
	Priority      int               `json:"priority"`
	RetryCount    int               `json:"retryCount"`
	MaxRetries    int               `json:"maxRetries"`
	QualityScore  *float64          `json:"qualityScore,omitempty"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	NextAttemptAt *time.Time        `json:"nextAttemptAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// TaskKind selects the executor a task is handed to.
type TaskKind string

const (
	TaskGenerate  TaskKind = "generate"
	TaskTranslate TaskKind = "translate"
)

// TaskStatus is the lifecycle of a durable work-queue row.
type TaskStatus string

const (
	TaskQueued  TaskStatus = "queued"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is a durable unit of work consumed by the worker pool.
type Task struct {
	ID            int64      `json:"id"`
	Kind          TaskKind   `json:"kind"`
	RefID         string     `json:"refId"`
	Status        TaskStatus `json:"status"`
	Priority      int        `json:"priority"`
	RefCreatedAt  time.Time  `json:"refCreatedAt"`
	Attempts      int        `json:"attempts"`
	AvailableAt   time.Time  `json:"availableAt"`
	LastHeartbeat *time.Time `json:"lastHeartbeat,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	Rerun         bool       `json:"rerun,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
