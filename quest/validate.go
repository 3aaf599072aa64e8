package quest

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	titleMinLen      = 3
	titleMaxLen      = 100
	descriptionMax   = 500
	tagsMax          = 10
	tagMaxLen        = 20
	rewardXPMax      = 1000
	targetCountMax   = 10000
	periodSecondsMax = 365 * 24 * 3600
	reasonMaxLen     = 200
)

var categories = map[Category]bool{
	CategoryHealth: true, CategoryFitness: true, CategoryLearning: true,
	CategoryCareer: true, CategorySocial: true, CategoryCreative: true,
	CategoryFinance: true, CategoryOther: true,
}

var privacies = map[Privacy]bool{
	PrivacyPublic: true, PrivacyFollowers: true, PrivacyPrivate: true,
}

var difficulties = map[Difficulty]bool{
	DifficultyEasy: true, DifficultyMedium: true, DifficultyHard: true,
}

var statuses = map[Status]bool{
	StatusDraft: true, StatusActive: true, StatusCompleted: true,
	StatusCancelled: true, StatusFailed: true,
}

// normalizeTitle trims and collapses internal whitespace runs.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeNote strips control characters and trims; used for free-text
// audit notes like a cancel reason.
func sanitizeNote(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func validateTitle(title string) (string, error) {
	title = normalizeTitle(title)
	if n := utf8.RuneCountInString(title); n < titleMinLen || n > titleMaxLen {
		return "", fmt.Errorf("%w: title must be %d-%d characters", ErrValidation, titleMinLen, titleMaxLen)
	}
	return title, nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > descriptionMax {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, descriptionMax)
	}
	return nil
}

func validateCategory(s string) (Category, error) {
	c := Category(s)
	if !categories[c] {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
	}
	return c, nil
}

func validatePrivacy(s string) (Privacy, error) {
	if s == "" {
		return PrivacyPrivate, nil
	}
	p := Privacy(s)
	if !privacies[p] {
		return "", fmt.Errorf("%w: unknown privacy %q", ErrValidation, s)
	}
	return p, nil
}

func validateDifficulty(s string) (Difficulty, error) {
	if s == "" {
		return DifficultyEasy, nil
	}
	d := Difficulty(s)
	if !difficulties[d] {
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrValidation, s)
	}
	return d, nil
}

func validateTags(tags []string) ([]string, error) {
	if len(tags) > tagsMax {
		return nil, fmt.Errorf("%w: at most %d tags allowed", ErrValidation, tagsMax)
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, fmt.Errorf("%w: empty tag", ErrValidation)
		}
		if utf8.RuneCountInString(tag) > tagMaxLen {
			return nil, fmt.Errorf("%w: tag %q exceeds %d characters", ErrValidation, tag, tagMaxLen)
		}
		out = append(out, tag)
	}
	return out, nil
}

func validateRewardXP(xp int) error {
	if xp < 0 || xp > rewardXPMax {
		return fmt.Errorf("%w: reward_xp must be 0-%d", ErrValidation, rewardXPMax)
	}
	return nil
}

func validateQuantitative(d *QuantitativeDetail, now time.Time) error {
	if d.TargetCount < 1 || d.TargetCount > targetCountMax {
		return fmt.Errorf("%w: target_count must be 1-%d", ErrValidation, targetCountMax)
	}
	if d.CountScope != CountScopeAny && d.CountScope != CountScopeLinked {
		return fmt.Errorf("%w: count_scope must be %q or %q", ErrValidation, CountScopeAny, CountScopeLinked)
	}
	if d.StartAt <= now.UnixMilli() {
		return fmt.Errorf("%w: start_at must be in the future", ErrValidation)
	}
	if d.PeriodSeconds < 1 || d.PeriodSeconds > periodSecondsMax {
		return fmt.Errorf("%w: period_seconds must be 1-%d", ErrValidation, periodSecondsMax)
	}
	return nil
}

// buildNew validates a creation payload and assembles the draft quest,
// leaving ID/version/audit to the repository.
func buildNew(userID string, p CreatePayload, now time.Time) (*Quest, error) {
	title, err := validateTitle(p.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(p.Description); err != nil {
		return nil, err
	}
	category, err := validateCategory(p.Category)
	if err != nil {
		return nil, err
	}
	privacy, err := validatePrivacy(p.Privacy)
	if err != nil {
		return nil, err
	}
	difficulty, err := validateDifficulty(p.Difficulty)
	if err != nil {
		return nil, err
	}
	tags, err := validateTags(p.Tags)
	if err != nil {
		return nil, err
	}
	if err := validateRewardXP(p.RewardXP); err != nil {
		return nil, err
	}

	q := &Quest{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(p.Description),
		Category:    category,
		Tags:        tags,
		Privacy:     privacy,
		Difficulty:  difficulty,
		RewardXP:    p.RewardXP,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch Kind(p.Kind) {
	case KindLinked:
		q.Kind = KindLinked
		q.Linked = &LinkedDetail{
			LinkedGoalIDs:     p.LinkedGoalIDs,
			LinkedTaskIDs:     p.LinkedTaskIDs,
			DependsOnQuestIDs: p.DependsOnQuestIDs,
		}
	case KindQuantitative:
		// No partial quantitative quests: all four fields up front.
		if p.TargetCount == nil || p.CountScope == "" || p.StartAt == nil || p.PeriodSeconds == nil {
			return nil, fmt.Errorf("%w: quantitative quests require target_count, count_scope, start_at and period_seconds", ErrValidation)
		}
		d := &QuantitativeDetail{
			TargetCount:   *p.TargetCount,
			CountScope:    CountScope(p.CountScope),
			StartAt:       *p.StartAt,
			PeriodSeconds: *p.PeriodSeconds,
		}
		if err := validateQuantitative(d, now); err != nil {
			return nil, err
		}
		q.Kind = KindQuantitative
		q.Quantitative = d
	default:
		return nil, fmt.Errorf("%w: kind must be %q or %q", ErrValidation, KindLinked, KindQuantitative)
	}

	return q, nil
}

// applyUpdate validates and applies a partial payload to a draft quest,
// mutating q in place.
func applyUpdate(q *Quest, p UpdatePayload) error {
	if p.Title != nil {
		title, err := validateTitle(*p.Title)
		if err != nil {
			return err
		}
		q.Title = title
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
		q.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		category, err := validateCategory(*p.Category)
		if err != nil {
			return err
		}
		q.Category = category
	}
	if p.Privacy != nil {
		privacy, err := validatePrivacy(*p.Privacy)
		if err != nil {
			return err
		}
		q.Privacy = privacy
	}
	if p.Difficulty != nil {
		difficulty, err := validateDifficulty(*p.Difficulty)
		if err != nil {
			return err
		}
		q.Difficulty = difficulty
	}
	if p.Tags != nil {
		tags, err := validateTags(*p.Tags)
		if err != nil {
			return err
		}
		q.Tags = tags
	}
	if p.RewardXP != nil {
		if err := validateRewardXP(*p.RewardXP); err != nil {
			return err
		}
		q.RewardXP = *p.RewardXP
	}

	switch q.Kind {
	case KindLinked:
		if p.TargetCount != nil || p.CountScope != nil || p.StartAt != nil || p.PeriodSeconds != nil {
			return fmt.Errorf("%w: quantitative fields not allowed on a linked quest", ErrValidation)
		}
		if q.Linked == nil {
			q.Linked = &LinkedDetail{}
		}
		if p.LinkedGoalIDs != nil {
			q.Linked.LinkedGoalIDs = *p.LinkedGoalIDs
		}
		if p.LinkedTaskIDs != nil {
			q.Linked.LinkedTaskIDs = *p.LinkedTaskIDs
		}
		if p.DependsOnQuestIDs != nil {
			q.Linked.DependsOnQuestIDs = *p.DependsOnQuestIDs
		}
	case KindQuantitative:
		if p.LinkedGoalIDs != nil || p.LinkedTaskIDs != nil || p.DependsOnQuestIDs != nil {
			return fmt.Errorf("%w: linked fields not allowed on a quantitative quest", ErrValidation)
		}
		if p.TargetCount != nil || p.CountScope != nil || p.StartAt != nil || p.PeriodSeconds != nil {
			d := *q.Quantitative
			if p.TargetCount != nil {
				if *p.TargetCount < 1 || *p.TargetCount > targetCountMax {
					return fmt.Errorf("%w: target_count must be 1-%d", ErrValidation, targetCountMax)
				}
				d.TargetCount = *p.TargetCount
			}
			if p.CountScope != nil {
				cs := CountScope(*p.CountScope)
				if cs != CountScopeAny && cs != CountScopeLinked {
					return fmt.Errorf("%w: count_scope must be %q or %q", ErrValidation, CountScopeAny, CountScopeLinked)
				}
				d.CountScope = cs
			}
			if p.StartAt != nil {
				// Only a changed start is held to the future rule; a draft
				// may legitimately outlive its original start time.
				if *p.StartAt <= time.Now().UnixMilli() {
					return fmt.Errorf("%w: start_at must be in the future", ErrValidation)
				}
				d.StartAt = *p.StartAt
			}
			if p.PeriodSeconds != nil {
				if *p.PeriodSeconds < 1 || *p.PeriodSeconds > periodSecondsMax {
					return fmt.Errorf("%w: period_seconds must be 1-%d", ErrValidation, periodSecondsMax)
				}
				d.PeriodSeconds = *p.PeriodSeconds
			}
			q.Quantitative = &d
		}
	}
	return nil
}
