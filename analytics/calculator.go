package analytics

import (
	"sort"
	"time"

	"github.com/questforge/server/quest"
)

// Clock abstracts "now" so streak and trend calculations are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Calculator derives analytics from a user's quest snapshot list. It is
// pure given the snapshots and the clock: no hidden state, identical
// output for identical input.
type Calculator struct {
	clock Clock
}

// NewCalculator creates a Calculator on the given clock.
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calculator{clock: clock}
}

// Calculate aggregates the snapshot list for the given period. Empty input
// yields a zero-valued object with all 24 hour buckets present.
func (c *Calculator) Calculate(userID string, quests []quest.Quest, period Period) *Analytics {
	now := c.clock.Now()
	filtered := filterByWindow(quests, period, now)

	a := &Analytics{
		UserID:              userID,
		Period:              period,
		Trends:              make(map[string][]TrendPoint),
		CategoryPerformance: make(map[string]CategoryStats),
		CalculatedAt:        now,
		TTLSeconds:          int64(period.TTL() / time.Second),
	}
	for h := 0; h < 24; h++ {
		a.ProductivityByHour[h].Hour = h
	}

	c.basicMetrics(a, filtered)
	a.BestStreak, a.CurrentStreak = streaks(filtered, now)
	c.categoryPerformance(a, filtered)
	c.hourlyProductivity(a, filtered)
	c.trendSeries(a, filtered, period, now)
	c.insights(a)
	return a
}

func filterByWindow(quests []quest.Quest, period Period, now time.Time) []quest.Quest {
	days := period.LookbackDays()
	if days == 0 {
		return quests
	}
	cutoff := now.AddDate(0, 0, -days)
	out := make([]quest.Quest, 0, len(quests))
	for _, q := range quests {
		if q.CreatedAt.After(cutoff) {
			out = append(out, q)
		}
	}
	return out
}

func completionSeconds(q *quest.Quest) float64 {
	return q.CompletedAt.Sub(q.CreatedAt).Seconds()
}

func (c *Calculator) basicMetrics(a *Analytics, quests []quest.Quest) {
	a.TotalQuests = len(quests)
	var totalSeconds float64
	for i := range quests {
		q := &quests[i]
		if q.Status != quest.StatusCompleted || q.CompletedAt == nil {
			continue
		}
		a.CompletedQuests++
		a.XPEarned += q.RewardXP
		totalSeconds += completionSeconds(q)
	}
	a.SuccessRate = ratio(a.CompletedQuests, a.TotalQuests)
	if a.CompletedQuests > 0 {
		a.AverageCompletionSeconds = totalSeconds / float64(a.CompletedQuests)
	}
}

// streaks groups completions by calendar day and finds the longest run of
// consecutive days, plus the run ending today (0 when today is empty).
func streaks(quests []quest.Quest, now time.Time) (best, current int) {
	days := make(map[time.Time]bool)
	for i := range quests {
		q := &quests[i]
		if q.Status != quest.StatusCompleted || q.CompletedAt == nil {
			continue
		}
		days[dateOnly(*q.CompletedAt)] = true
	}
	if len(days) == 0 {
		return 0, 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	for i, d := range sorted {
		if i > 0 && d.Equal(sorted[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}

	today := dateOnly(now)
	if days[today] {
		for d := today; days[d]; d = d.AddDate(0, 0, -1) {
			current++
		}
	}
	return best, current
}

func (c *Calculator) categoryPerformance(a *Analytics, quests []quest.Quest) {
	type acc struct {
		total, completed, xp int
		seconds              float64
	}
	byCat := make(map[string]*acc)
	for i := range quests {
		q := &quests[i]
		cat := string(q.Category)
		st, ok := byCat[cat]
		if !ok {
			st = &acc{}
			byCat[cat] = st
		}
		st.total++
		if q.Status == quest.StatusCompleted && q.CompletedAt != nil {
			st.completed++
			st.xp += q.RewardXP
			st.seconds += completionSeconds(q)
		}
	}
	for cat, st := range byCat {
		cs := CategoryStats{
			TotalQuests:     st.total,
			CompletedQuests: st.completed,
			SuccessRate:     ratio(st.completed, st.total),
			XPEarned:        st.xp,
		}
		if st.completed > 0 {
			cs.AverageCompletionSeconds = st.seconds / float64(st.completed)
		}
		a.CategoryPerformance[cat] = cs
	}
}

func (c *Calculator) hourlyProductivity(a *Analytics, quests []quest.Quest) {
	var seconds [24]float64
	for i := range quests {
		q := &quests[i]
		if q.Status != quest.StatusCompleted || q.CompletedAt == nil {
			continue
		}
		h := q.CompletedAt.Hour()
		a.ProductivityByHour[h].QuestsCompleted++
		a.ProductivityByHour[h].XPEarned += q.RewardXP
		seconds[h] += completionSeconds(q)
	}
	for h := 0; h < 24; h++ {
		if n := a.ProductivityByHour[h].QuestsCompleted; n > 0 {
			a.ProductivityByHour[h].AverageCompletionSeconds = seconds[h] / float64(n)
		}
	}
}

// trendSeries emits one cumulative point per day of the window, inclusive
// of today. Values are cumulative as of end of that day, not deltas.
func (c *Calculator) trendSeries(a *Analytics, quests []quest.Quest, period Period, now time.Time) {
	today := dateOnly(now)
	start := today
	if days := period.LookbackDays(); days > 0 {
		start = today.AddDate(0, 0, -(days - 1))
	} else {
		for i := range quests {
			if d := dateOnly(quests[i].CreatedAt); d.Before(start) {
				start = d
			}
		}
	}

	var rates, xps, created []TrendPoint
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		dayEnd := d.AddDate(0, 0, 1)
		var createdN, completedN, xp int
		for i := range quests {
			q := &quests[i]
			if q.CreatedAt.Before(dayEnd) {
				createdN++
			}
			if q.Status == quest.StatusCompleted && q.CompletedAt != nil && q.CompletedAt.Before(dayEnd) {
				completedN++
				xp += q.RewardXP
			}
		}
		date := d.Format("2006-01-02")
		rates = append(rates, TrendPoint{Date: date, Value: ratio(completedN, createdN)})
		xps = append(xps, TrendPoint{Date: date, Value: float64(xp)})
		created = append(created, TrendPoint{Date: date, Value: float64(createdN)})
	}
	a.Trends[TrendCompletionRate] = rates
	a.Trends[TrendXPEarned] = xps
	a.Trends[TrendQuestsCreated] = created
}

func (c *Calculator) insights(a *Analytics) {
	a.Insights.TrendDirection = trendDirection(a.Trends[TrendCompletionRate])
	if a.TotalQuests > 0 {
		a.Insights.ConsistencyScore = float64(a.BestStreak) / float64(a.TotalQuests)
	}

	bestCat, bestRate, bestXP := "", -1.0, -1
	cats := make([]string, 0, len(a.CategoryPerformance))
	for cat := range a.CategoryPerformance {
		cats = append(cats, cat)
	}
	sort.Strings(cats) // deterministic tie order
	for _, cat := range cats {
		cs := a.CategoryPerformance[cat]
		if cs.SuccessRate > bestRate || (cs.SuccessRate == bestRate && cs.XPEarned > bestXP) {
			bestCat, bestRate, bestXP = cat, cs.SuccessRate, cs.XPEarned
		}
	}
	a.Insights.MostProductiveCategory = bestCat

	bestHour, bestCount := 0, 0
	for h := 0; h < 24; h++ {
		if n := a.ProductivityByHour[h].QuestsCompleted; n > bestCount {
			bestHour, bestCount = h, n
		}
	}
	a.Insights.MostProductiveHour = bestHour
}

// trendDirection compares the mean of the most recent third of the series
// against the mean of the earliest third. Series too short to split into
// thirds are stable by definition.
func trendDirection(series []TrendPoint) string {
	third := len(series) / 3
	if third == 0 {
		return TrendStable
	}
	early := meanOf(series[:third])
	recent := meanOf(series[len(series)-third:])
	const epsilon = 0.05
	switch {
	case recent-early > epsilon:
		return TrendImproving
	case early-recent > epsilon:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanOf(points []TrendPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// dateOnly normalizes to a UTC calendar date so times from different
// locations land on comparable map keys.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
