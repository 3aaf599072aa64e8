package quest

import "time"

// Kind discriminates the two quest shapes.
type Kind string

const (
	KindLinked       Kind = "linked"
	KindQuantitative Kind = "quantitative"
)

// Status is the lifecycle state of a quest.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Category classifies a quest.
type Category string

const (
	CategoryHealth   Category = "health"
	CategoryFitness  Category = "fitness"
	CategoryLearning Category = "learning"
	CategoryCareer   Category = "career"
	CategorySocial   Category = "social"
	CategoryCreative Category = "creative"
	CategoryFinance  Category = "finance"
	CategoryOther    Category = "other"
)

// Privacy controls who may see a quest.
type Privacy string

const (
	PrivacyPublic    Privacy = "public"
	PrivacyFollowers Privacy = "followers"
	PrivacyPrivate   Privacy = "private"
)

// Difficulty grades a quest.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// CountScope says which completions count toward a quantitative target.
type CountScope string

const (
	CountScopeAny    CountScope = "any"
	CountScopeLinked CountScope = "linked"
)

// AuditEntry is one record in a quest's embedded audit trail.
type AuditEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Note      string    `json:"note,omitempty"`
}

// LinkedDetail holds the fields specific to linked quests.
type LinkedDetail struct {
	LinkedGoalIDs     []string `json:"linked_goal_ids"`
	LinkedTaskIDs     []string `json:"linked_task_ids"`
	DependsOnQuestIDs []string `json:"depends_on_quest_ids,omitempty"`
}

// HasLinks reports whether at least one goal or task is linked.
func (d *LinkedDetail) HasLinks() bool {
	return d != nil && (len(d.LinkedGoalIDs) > 0 || len(d.LinkedTaskIDs) > 0)
}

// QuantitativeDetail holds the fields specific to quantitative quests.
// All four fields are required at creation.
type QuantitativeDetail struct {
	TargetCount   int        `json:"target_count"`
	CountScope    CountScope `json:"count_scope"`
	StartAt       int64      `json:"start_at"` // epoch ms
	PeriodSeconds int64      `json:"period_seconds"`
}

// Quest is the versioned domain entity. Exactly one of Linked or
// Quantitative is set, matching Kind.
type Quest struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	Tags        []string   `json:"tags,omitempty"`
	Privacy     Privacy    `json:"privacy"`
	Difficulty  Difficulty `json:"difficulty"`
	RewardXP    int        `json:"reward_xp"`

	Kind         Kind                `json:"kind"`
	Linked       *LinkedDetail       `json:"linked,omitempty"`
	Quantitative *QuantitativeDetail `json:"quantitative,omitempty"`

	Status      Status     `json:"status"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	AuditTrail []AuditEntry `json:"audit_trail"`
}

// CreatePayload is the input to Repository.Create.
type CreatePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
	Difficulty  string   `json:"difficulty"`
	RewardXP    int      `json:"reward_xp"`
	Kind        string   `json:"kind"`

	LinkedGoalIDs     []string `json:"linked_goal_ids"`
	LinkedTaskIDs     []string `json:"linked_task_ids"`
	DependsOnQuestIDs []string `json:"depends_on_quest_ids"`

	TargetCount   *int   `json:"target_count"`
	CountScope    string `json:"count_scope"`
	StartAt       *int64 `json:"start_at"`
	PeriodSeconds *int64 `json:"period_seconds"`
}

// UpdatePayload carries the partial update for a draft quest. Nil fields
// are left unchanged.
type UpdatePayload struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	Privacy     *string   `json:"privacy"`
	Difficulty  *string   `json:"difficulty"`
	RewardXP    *int      `json:"reward_xp"`

	LinkedGoalIDs     *[]string `json:"linked_goal_ids"`
	LinkedTaskIDs     *[]string `json:"linked_task_ids"`
	DependsOnQuestIDs *[]string `json:"depends_on_quest_ids"`

	TargetCount   *int    `json:"target_count"`
	CountScope    *string `json:"count_scope"`
	StartAt       *int64  `json:"start_at"`
	PeriodSeconds *int64  `json:"period_seconds"`
}

// ListFilter narrows List results.
type ListFilter struct {
	GoalID string
	Status string
}

// Audit trail actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionStarted   = "started"
	ActionCompleted = "completed"
	ActionCancelled = "cancelled"
	ActionFailed    = "failed"
)
