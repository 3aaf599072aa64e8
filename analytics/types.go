package analytics

import (
	"fmt"
	"time"
)

// Period selects the lookback window for an analytics computation.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "allTime"
)

// Periods lists every valid period, in TTL order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// TTL is how long a cached computation for this period stays fresh.
func (p Period) TTL() time.Duration {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// LookbackDays is the creation-time window; 0 means unbounded.
func (p Period) LookbackDays() int {
	switch p {
	case PeriodDaily:
		return 1
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 30
	default:
		return 0
	}
}

// Trend series names.
const (
	TrendCompletionRate = "completion_rate"
	TrendXPEarned       = "xp_earned"
	TrendQuestsCreated  = "quests_created"
)

// TrendPoint is one cumulative sample in a trend series.
type TrendPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// CategoryStats is the per-category slice of the basic metrics.
type CategoryStats struct {
	TotalQuests              int     `json:"total_quests"`
	CompletedQuests          int     `json:"completed_quests"`
	SuccessRate              float64 `json:"success_rate"`
	XPEarned                 int     `json:"xp_earned"`
	AverageCompletionSeconds float64 `json:"average_completion_seconds"`
}

// HourBucket aggregates completions for one hour of day.
type HourBucket struct {
	Hour                     int     `json:"hour"`
	QuestsCompleted          int     `json:"quests_completed"`
	XPEarned                 int     `json:"xp_earned"`
	AverageCompletionSeconds float64 `json:"average_completion_seconds"`
}

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// Insights is the derived view layered on top of the aggregates.
type Insights struct {
	MostProductiveCategory string  `json:"most_productive_category"`
	MostProductiveHour     int     `json:"most_productive_hour"`
	TrendDirection         string  `json:"trend_direction"`
	ConsistencyScore       float64 `json:"consistency_score"`
}

// Analytics is the derived, cache-only aggregate for one (user, period).
type Analytics struct {
	UserID                   string                   `json:"user_id"`
	Period                   Period                   `json:"period"`
	TotalQuests              int                      `json:"total_quests"`
	CompletedQuests          int                      `json:"completed_quests"`
	SuccessRate              float64                  `json:"success_rate"`
	AverageCompletionSeconds float64                  `json:"average_completion_seconds"`
	BestStreak               int                      `json:"best_streak"`
	CurrentStreak            int                      `json:"current_streak"`
	XPEarned                 int                      `json:"xp_earned"`
	Trends                   map[string][]TrendPoint  `json:"trends"`
	CategoryPerformance      map[string]CategoryStats `json:"category_performance"`
	ProductivityByHour       [24]HourBucket           `json:"productivity_by_hour"`
	Insights                 Insights                 `json:"insights"`
	CalculatedAt             time.Time                `json:"calculated_at"`
	TTLSeconds               int64                    `json:"ttl_seconds"`
}
