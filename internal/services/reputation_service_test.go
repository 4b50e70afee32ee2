package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gudam-backend/internal/apperr"
)

func TestComputeReputationZeroState(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	rep, err := svc.ComputeReputation("USR-none")
	require.NoError(t, err)

	assert.Equal(t, 0.0, rep.AverageScore)
	assert.Equal(t, 0, rep.TotalRatings)
	assert.Equal(t, map[string]int{"5": 0, "4": 0, "3": 0, "2": 0, "1": 0}, rep.ScoreBreakdown)
	assert.Empty(t, rep.CategoryScores)
	assert.Empty(t, rep.EntityScores)
	assert.Empty(t, rep.Badge)
	assert.Empty(t, rep.BadgeBN)
}

func TestComputeReputationAverageAndHistogram(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	seedRating(t, st, "RTG-1", "USR-f1", "USR-b1", 5, "quality", "")
	seedRating(t, st, "RTG-2", "USR-f1", "USR-b2", 4.7, "quality", "")
	seedRating(t, st, "RTG-3", "USR-f1", "USR-b3", 4.3, "delivery", "")
	seedRating(t, st, "RTG-4", "USR-f1", "USR-b4", 3, "delivery", "")

	rep, err := svc.ComputeReputation("USR-f1")
	require.NoError(t, err)

	assert.Equal(t, 4, rep.TotalRatings)
	assert.InDelta(t, 4.25, rep.AverageScore, 0.001)

	// 4.7 and 4.3 both truncate into the "4" bucket.
	assert.Equal(t, 1, rep.ScoreBreakdown["5"])
	assert.Equal(t, 2, rep.ScoreBreakdown["4"])
	assert.Equal(t, 1, rep.ScoreBreakdown["3"])
	assert.Equal(t, 0, rep.ScoreBreakdown["2"])

	assert.InDelta(t, 4.85, rep.CategoryScores["quality"], 0.001)
	assert.InDelta(t, 3.65, rep.CategoryScores["delivery"], 0.001)
}

func TestComputeReputationEntityFallbackChain(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	// Explicit entity type wins, then the category tag, then "farmer".
	seedRating(t, st, "RTG-1", "USR-f1", "USR-b1", 5, "quality", "agent")
	seedRating(t, st, "RTG-2", "USR-f1", "USR-b2", 3, "product", "")

	rep, err := svc.ComputeReputation("USR-f1")
	require.NoError(t, err)

	assert.InDelta(t, 5.0, rep.EntityScores["agent"], 0.001)
	assert.InDelta(t, 3.0, rep.EntityScores["product"], 0.001)
}

func TestComputeReputationUncategorizedFallsBackToGeneral(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	seedRating(t, st, "RTG-1", "USR-f1", "USR-b1", 4, "general", "")

	rep, err := svc.ComputeReputation("USR-f1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, rep.CategoryScores["general"], 0.001)
}

func TestBadgeTiers(t *testing.T) {
	cases := []struct {
		avg     float64
		total   int
		badge   string
		badgeBN string
	}{
		{4.8, 6, "Gold Seller", "স্বর্ণ বিক্রেতা"},
		{4.5, 5, "Gold Seller", "স্বর্ণ বিক্রেতা"},
		{4.6, 4, "Trusted Seller", "বিশ্বস্ত বিক্রেতা"},
		{4.0, 3, "Trusted Seller", "বিশ্বস্ত বিক্রেতা"},
		{4.2, 2, "Verified Seller", "যাচাইকৃত বিক্রেতা"},
		{3.5, 1, "Verified Seller", "যাচাইকৃত বিক্রেতা"},
		{2.5, 1, "New Seller", "নতুন বিক্রেতা"},
		{2.4, 10, "", ""},
	}

	for _, tc := range cases {
		badge, badgeBN := badgeFor(tc.avg, tc.total)
		assert.Equal(t, tc.badge, badge, "avg=%v total=%d", tc.avg, tc.total)
		assert.Equal(t, tc.badgeBN, badgeBN, "avg=%v total=%d", tc.avg, tc.total)
	}
}

func TestSubmitRatingRequiresCompletedOrder(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)
	seedUser(t, st, "USR-f1", "Karim", "farmer")
	seedUser(t, st, "USR-b1", "Buyer", "buyer")

	input := RatingInput{
		RatedUserID: "USR-f1",
		FromUserID:  "USR-b1",
		OrderID:     "ORD-missing",
		Score:       5,
	}

	_, err := svc.SubmitRating(input)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Status)

	seedOrder(t, st, "ORD-1", "PRD-1", "USR-b1", "USR-f1", "pending")
	input.OrderID = "ORD-1"
	_, err = svc.SubmitRating(input)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Status)
}

func TestSubmitRatingDuplicateForSameOrder(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)
	seedUser(t, st, "USR-f1", "Karim", "farmer")
	seedUser(t, st, "USR-b1", "Buyer", "buyer")
	seedOrder(t, st, "ORD-1", "PRD-1", "USR-b1", "USR-f1", "completed")

	input := RatingInput{
		RatedUserID: "USR-f1",
		FromUserID:  "USR-b1",
		OrderID:     "ORD-1",
		Score:       4,
		Comment:     "Good",
	}

	rating, err := svc.SubmitRating(input)
	require.NoError(t, err)
	assert.Contains(t, rating.ID, "RTG-")
	assert.Equal(t, "farmer", rating.RatedEntityType)
	assert.Equal(t, "general", rating.Category)

	_, err = svc.SubmitRating(input)
	require.Error(t, err)
	assert.Equal(t, 409, apperr.From(err).Status)
}

func TestSubmitRatingWithoutOrderSkipsOrderChecks(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	input := RatingInput{
		RatedUserID: "USR-f1",
		FromUserID:  "USR-b1",
		Score:       5,
		Category:    "quality",
	}

	_, err := svc.SubmitRating(input)
	require.NoError(t, err)

	// Without an order reference the uniqueness rule does not apply.
	_, err = svc.SubmitRating(input)
	require.NoError(t, err)

	rep, err := svc.ComputeReputation("USR-f1")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalRatings)
}

func TestUserRatingsFilterAndOrder(t *testing.T) {
	st := newTestStore(t)
	svc := NewReputationService(st)

	seedRating(t, st, "RTG-1", "USR-f1", "USR-b1", 5, "quality", "")
	seedRating(t, st, "RTG-2", "USR-f1", "USR-b2", 3, "delivery", "")
	seedRating(t, st, "RTG-3", "USR-other", "USR-b1", 1, "quality", "")

	all, total, err := svc.UserRatings("USR-f1", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	quality, total, err := svc.UserRatings("USR-f1", "quality", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, quality, 1)
	assert.Equal(t, "RTG-1", quality[0].ID)
}
