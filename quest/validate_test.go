package quest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedPayload() CreatePayload {
	return CreatePayload{
		Title:    "Read every morning",
		Category: "learning",
		Kind:     "linked",
		RewardXP: 50,
	}
}

func quantitativePayload(startAt int64) CreatePayload {
	target := 5
	period := int64(86400)
	return CreatePayload{
		Title:         "Run 5 times",
		Category:      "fitness",
		Kind:          "quantitative",
		TargetCount:   &target,
		CountScope:    "any",
		StartAt:       &startAt,
		PeriodSeconds: &period,
	}
}

func TestBuildNew_LinkedDefaults(t *testing.T) {
	q, err := buildNew("u1", linkedPayload(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, KindLinked, q.Kind)
	assert.NotNil(t, q.Linked)
	assert.Nil(t, q.Quantitative)
	assert.Equal(t, PrivacyPrivate, q.Privacy)
	assert.Equal(t, DifficultyEasy, q.Difficulty)
}

func TestBuildNew_TitleNormalized(t *testing.T) {
	p := linkedPayload()
	p.Title = "  Read   every\t morning  "
	q, err := buildNew("u1", p, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Read every morning", q.Title)
}

func TestBuildNew_TitleBounds(t *testing.T) {
	p := linkedPayload()
	p.Title = "ab"
	_, err := buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	p.Title = strings.Repeat("x", 101)
	_, err = buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_UnknownCategory(t *testing.T) {
	p := linkedPayload()
	p.Category = "gardening"
	_, err := buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_TagLimits(t *testing.T) {
	p := linkedPayload()
	p.Tags = make([]string, 11)
	for i := range p.Tags {
		p.Tags[i] = "t"
	}
	_, err := buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	p.Tags = []string{strings.Repeat("x", 21)}
	_, err = buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_RewardXPRange(t *testing.T) {
	p := linkedPayload()
	p.RewardXP = 1001
	_, err := buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)

	p.RewardXP = -1
	_, err = buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_QuantitativeRequiresAllFields(t *testing.T) {
	now := time.Now()
	p := quantitativePayload(now.Add(time.Hour).UnixMilli())
	p.PeriodSeconds = nil
	_, err := buildNew("u1", p, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_QuantitativeStartMustBeFuture(t *testing.T) {
	now := time.Now()
	p := quantitativePayload(now.Add(-time.Minute).UnixMilli())
	_, err := buildNew("u1", p, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_QuantitativeRanges(t *testing.T) {
	now := time.Now()
	p := quantitativePayload(now.Add(time.Hour).UnixMilli())
	bad := 10001
	p.TargetCount = &bad
	_, err := buildNew("u1", p, now)
	assert.ErrorIs(t, err, ErrValidation)

	p = quantitativePayload(now.Add(time.Hour).UnixMilli())
	tooLong := int64(366 * 24 * 3600)
	p.PeriodSeconds = &tooLong
	_, err = buildNew("u1", p, now)
	assert.ErrorIs(t, err, ErrValidation)

	p = quantitativePayload(now.Add(time.Hour).UnixMilli())
	p.CountScope = "some"
	_, err = buildNew("u1", p, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildNew_UnknownKind(t *testing.T) {
	p := linkedPayload()
	p.Kind = "epic"
	_, err := buildNew("u1", p, time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApplyUpdate_KindFieldsSegregated(t *testing.T) {
	q, err := buildNew("u1", linkedPayload(), time.Now())
	require.NoError(t, err)

	target := 3
	err = applyUpdate(q, UpdatePayload{TargetCount: &target})
	assert.ErrorIs(t, err, ErrValidation)

	goals := []string{"g1"}
	require.NoError(t, applyUpdate(q, UpdatePayload{LinkedGoalIDs: &goals}))
	assert.Equal(t, []string{"g1"}, q.Linked.LinkedGoalIDs)
}

func TestSanitizeNote(t *testing.T) {
	assert.Equal(t, "changed my mind", sanitizeNote(" changed my mind\n\x00"))
}
