package services

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// ReputationService aggregates raw rating records into per-user scores and
// badge tiers. Reputation is derived state: recomputed from the full rating
// set on every read, never cached or persisted.
type ReputationService struct {
	store *store.Client
}

// NewReputationService creates a new reputation service
func NewReputationService(st *store.Client) *ReputationService {
	return &ReputationService{store: st}
}

// RatingInput is a rating submission.
type RatingInput struct {
	RatedUserID     string  `json:"rated_user_id" binding:"required"`
	FromUserID      string  `json:"from_user_id" binding:"required"`
	RatedEntityType string  `json:"rated_entity_type"`
	ProductID       string  `json:"product_id"`
	OrderID         string  `json:"order_id"`
	Score           float64 `json:"score" binding:"required,gte=1,lte=5"`
	Comment         string  `json:"comment"`
	CommentBN       string  `json:"comment_bn"`
	Category        string  `json:"category"`
}

// ComputeReputation aggregates all ratings received by a user. A user with no
// ratings gets the zero state: average 0.0, empty maps, no badge.
func (s *ReputationService) ComputeReputation(userID string) (*models.Reputation, error) {
	rows, _, err := s.store.Select("ratings", store.Query{
		Filters: []store.Filter{store.Eq("to_user_id", userID)},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	rep := &models.Reputation{
		UserID:         userID,
		ScoreBreakdown: map[string]int{"5": 0, "4": 0, "3": 0, "2": 0, "1": 0},
		CategoryScores: map[string]float64{},
		EntityScores:   map[string]float64{},
	}
	if len(rows) == 0 {
		return rep, nil
	}

	ratings := make([]*models.Rating, 0, len(rows))
	for _, r := range rows {
		ratings = append(ratings, models.RatingFromRow(r))
	}

	var sum float64
	for _, r := range ratings {
		sum += r.Score
	}
	rep.TotalRatings = len(ratings)
	rep.AverageScore = utils.RoundToDecimalPlaces(sum/float64(len(ratings)), 2)

	// Histogram buckets by integer truncation: 4.7 counts under "4". Scores
	// that truncate outside 1-5 are dropped from the histogram but still
	// count toward the average.
	for _, r := range ratings {
		bucket := strconv.Itoa(int(r.Score))
		if _, ok := rep.ScoreBreakdown[bucket]; ok {
			rep.ScoreBreakdown[bucket]++
		}
	}

	categorySums := map[string]float64{}
	categoryCounts := map[string]int{}
	for _, r := range ratings {
		cat := r.Category
		if cat == "" {
			cat = "general"
		}
		categorySums[cat] += r.Score
		categoryCounts[cat]++
	}
	for cat, total := range categorySums {
		rep.CategoryScores[cat] = utils.RoundToDecimalPlaces(total/float64(categoryCounts[cat]), 2)
	}

	// Entity-type breakdown (farmer/agent/product), falling back to the
	// category tag for older rows that predate the entity-type column.
	entitySums := map[string]float64{}
	entityCounts := map[string]int{}
	for _, r := range ratings {
		etype := r.RatedEntityType
		if etype == "" {
			etype = r.Category
		}
		if etype == "" {
			etype = "farmer"
		}
		entitySums[etype] += r.Score
		entityCounts[etype]++
	}
	for etype, total := range entitySums {
		rep.EntityScores[etype] = utils.RoundToDecimalPlaces(total/float64(entityCounts[etype]), 2)
	}

	rep.Badge, rep.BadgeBN = badgeFor(rep.AverageScore, rep.TotalRatings)
	return rep, nil
}

// badgeFor returns the badge tier for an average score and rating count.
// First matching rule wins.
func badgeFor(avg float64, total int) (string, string) {
	switch {
	case avg >= 4.5 && total >= 5:
		return "Gold Seller", "স্বর্ণ বিক্রেতা"
	case avg >= 4.0 && total >= 3:
		return "Trusted Seller", "বিশ্বস্ত বিক্রেতা"
	case avg >= 3.5:
		return "Verified Seller", "যাচাইকৃত বিক্রেতা"
	case avg >= 2.5:
		return "New Seller", "নতুন বিক্রেতা"
	}
	return "", ""
}

// SubmitRating records an immutable rating. When an order is referenced the
// order must be completed and the (order, rater, ratee) tuple must be new;
// the pre-check is backed by a unique index so a concurrent duplicate still
// fails cleanly.
func (s *ReputationService) SubmitRating(input RatingInput) (*models.Rating, error) {
	if input.Category == "" {
		input.Category = "general"
	}
	if input.RatedEntityType == "" {
		input.RatedEntityType = "farmer"
	}

	if input.OrderID != "" {
		existing, _, err := s.store.Select("ratings", store.Query{Filters: []store.Filter{
			store.Eq("order_id", input.OrderID),
			store.Eq("from_user_id", input.FromUserID),
			store.Eq("to_user_id", input.RatedUserID),
		}})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if len(existing) > 0 {
			return nil, apperr.Conflict("আপনি ইতিমধ্যে এই অর্ডারে রেটিং দিয়েছেন (You already rated for this order)")
		}

		orders, _, err := s.store.Select("orders", store.Query{Filters: []store.Filter{store.Eq("id", input.OrderID)}})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if len(orders) == 0 {
			return nil, apperr.NotFound("অর্ডার পাওয়া যায়নি (Order not found)")
		}
		status := models.OrderStatus(models.Str(orders[0], "status"))
		if !status.Rateable() {
			return nil, apperr.BadRequest("অর্ডার সম্পন্ন না হলে রেটিং দেওয়া যায় না (Order must be completed to rate)")
		}
	}

	rating := &models.Rating{
		ID:              utils.ShortID("RTG", uuid.New().String()),
		ToUserID:        input.RatedUserID,
		FromUserID:      input.FromUserID,
		OrderID:         input.OrderID,
		ProductID:       input.ProductID,
		RatedEntityType: input.RatedEntityType,
		Category:        input.Category,
		Score:           input.Score,
		Review:          input.Comment,
		ReviewBN:        input.CommentBN,
		CreatedAt:       utils.NowISO(),
	}

	_, err := s.store.Insert("ratings", store.Row{
		"id":                rating.ID,
		"to_user_id":        rating.ToUserID,
		"from_user_id":      rating.FromUserID,
		"order_id":          nullable(rating.OrderID),
		"product_id":        nullable(rating.ProductID),
		"rated_entity_type": rating.RatedEntityType,
		"type":              rating.Category,
		"rating":            rating.Score,
		"review":            nullable(rating.Review),
		"review_bn":         nullable(rating.ReviewBN),
		"created_at":        rating.CreatedAt,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperr.Conflict("আপনি ইতিমধ্যে এই অর্ডারে রেটিং দিয়েছেন (You already rated for this order)")
		}
		return nil, apperr.Internal(err)
	}

	return rating, nil
}

// UserRatings returns the ratings a user has received, optionally filtered by
// category, newest first.
func (s *ReputationService) UserRatings(userID, category string, page, pageSize int) ([]*models.Rating, int, error) {
	filters := []store.Filter{store.Eq("to_user_id", userID)}
	if category != "" {
		filters = append(filters, store.Eq("type", category))
	}

	rows, total, err := s.store.Select("ratings", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	items := make([]*models.Rating, 0, len(rows))
	for _, r := range rows {
		items = append(items, models.RatingFromRow(r))
	}
	return items, total, nil
}
