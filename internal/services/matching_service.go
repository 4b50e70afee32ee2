package services

import (
	"fmt"
	"sort"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/geo"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// Scoring weights. Proximity, capacity and reputation components are
// normalized to [0,1] and weighted to a total match score in [0,100].
const (
	proximityWeight  = 40.0
	capacityWeight   = 30.0
	reputationWeight = 30.0
)

// DefaultMaxDistanceKm applies when a request does not bound the search.
const DefaultMaxDistanceKm = 100.0

// MatchingService filters and ranks agent candidates against a farmer's
// request using distance, warehouse capacity and reputation.
type MatchingService struct {
	store      *store.Client
	reputation *ReputationService
	notifier   *NotificationService
}

// NewMatchingService creates a new matching service
func NewMatchingService(st *store.Client, reputation *ReputationService, notifier *NotificationService) *MatchingService {
	return &MatchingService{store: st, reputation: reputation, notifier: notifier}
}

// MatchAgentRequest is a one-shot ranked match request.
type MatchAgentRequest struct {
	FarmerLat       float64 `json:"farmer_lat"`
	FarmerLon       float64 `json:"farmer_lon"`
	ProductCategory string  `json:"product_category"`
	QuantityTons    float64 `json:"quantity_tons"`
	MaxDistanceKm   float64 `json:"max_distance_km"`
}

// AutoMatchNotifyRequest asks for the top matches to be notified directly.
type AutoMatchNotifyRequest struct {
	FarmerID        string  `json:"farmer_id" binding:"required"`
	FarmerLat       float64 `json:"farmer_lat"`
	FarmerLon       float64 `json:"farmer_lon"`
	ProductID       string  `json:"product_id" binding:"required"`
	ProductCategory string  `json:"product_category"`
	QuantityTons    float64 `json:"quantity_tons"`
	MaxDistanceKm   float64 `json:"max_distance_km"`
	TopN            int     `json:"top_n"`
}

// AgentMatch is one ranked candidate.
type AgentMatch struct {
	AgentID               string         `json:"agent_id"`
	Name                  string         `json:"name"`
	GudamName             string         `json:"gudam_name"`
	DistanceKm            float64        `json:"distance_km"`
	AvailableCapacityTons float64        `json:"available_capacity_tons"`
	AverageRating         float64        `json:"average_rating"`
	MatchScore            float64        `json:"match_score"`
	Location              map[string]any `json:"location"`
	StorageType           string         `json:"storage_type"`
	CommissionRatePercent float64        `json:"commission_rate_percent"`
	Phone                 string         `json:"phone"`
	NotificationID        string         `json:"notification_id,omitempty"`
}

// MatchResult is the outcome of a direct match request.
type MatchResult struct {
	BestMatch    *AgentMatch   `json:"best_match"`
	AllMatches   []*AgentMatch `json:"all_matches"`
	TotalMatches int           `json:"total_matches"`
}

// AutoMatchResult is the outcome of a match-and-notify request.
type AutoMatchResult struct {
	TotalNotified  int           `json:"total_notified"`
	NotifiedAgents []*AgentMatch `json:"notified_agents"`
	Matches        []*AgentMatch `json:"matches"`
}

// NearbyAgent is a candidate ranked purely by distance.
type NearbyAgent struct {
	AgentID               string         `json:"agent_id"`
	Name                  string         `json:"name"`
	GudamName             string         `json:"gudam_name"`
	DistanceKm            float64        `json:"distance_km"`
	AvailableCapacityTons float64        `json:"available_capacity_tons"`
	StorageType           string         `json:"storage_type"`
	AverageRating         float64        `json:"average_rating"`
	Phone                 string         `json:"phone"`
	Location              map[string]any `json:"location"`
	Resources             map[string]any `json:"resources"`
	OperatingHours        string         `json:"operating_hours"`
	CommissionRatePercent float64        `json:"commission_rate_percent"`
}

// TopAgent is a candidate ranked by reputation.
type TopAgent struct {
	AgentID               string         `json:"agent_id"`
	Name                  string         `json:"name"`
	GudamName             string         `json:"gudam_name"`
	AverageRating         float64        `json:"average_rating"`
	Badge                 string         `json:"badge,omitempty"`
	BadgeBN               string         `json:"badge_bn,omitempty"`
	TotalRatings          int            `json:"total_ratings"`
	Location              map[string]any `json:"location"`
	Phone                 string         `json:"phone"`
	StorageType           string         `json:"storage_type"`
	AvailableCapacityTons float64        `json:"available_capacity_tons"`
}

// AgentCapacityInfo is a capacity snapshot for one agent.
type AgentCapacityInfo struct {
	AgentID               string         `json:"agent_id"`
	GudamName             string         `json:"gudam_name"`
	StorageType           string         `json:"storage_type"`
	TotalCapacityTons     float64        `json:"total_capacity_tons"`
	CurrentStoredTons     float64        `json:"current_stored_tons"`
	AvailableCapacityTons float64        `json:"available_capacity_tons"`
	UtilizationPercent    float64        `json:"utilization_percent"`
	Resources             map[string]any `json:"resources"`
	OperatingHours        string         `json:"operating_hours"`
	ServiceAreas          []string       `json:"service_areas"`
	IsAcceptingNew        bool           `json:"is_accepting_new"`
}

// fetchAgents pulls every agent user from the store.
func (s *MatchingService) fetchAgents() ([]*models.Agent, error) {
	rows, _, err := s.store.Select("users", store.Query{
		Filters: []store.Filter{store.Eq("role", string(models.RoleAgent))},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	agents := make([]*models.Agent, 0, len(rows))
	for _, r := range rows {
		agents = append(agents, models.AgentFromRow(r))
	}
	return agents, nil
}

// rankCandidates applies the filter-and-score pass shared by MatchAgents and
// AutoMatchAndNotify. The capacity normalization maximum deliberately ranges
// over all fetched agents, filtered or not.
func (s *MatchingService) rankCandidates(farmerLat, farmerLon, quantityTons, maxDistanceKm float64) ([]*AgentMatch, error) {
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}

	agents, err := s.fetchAgents()
	if err != nil {
		return nil, err
	}

	var maxCapacity float64
	for _, a := range agents {
		if a.AvailableCapacityTons > maxCapacity {
			maxCapacity = a.AvailableCapacityTons
		}
	}

	var candidates []*AgentMatch
	for _, agent := range agents {
		if !agent.IsActive {
			continue
		}
		lat, lon, ok := agent.Coordinates()
		if !ok {
			continue
		}

		distance := geo.HaversineKm(farmerLat, farmerLon, lat, lon)
		if distance > maxDistanceKm {
			continue
		}
		if quantityTons > 0 && agent.AvailableCapacityTons < quantityTons {
			continue
		}

		proximityScore := max(0, (maxDistanceKm-distance)/maxDistanceKm) * proximityWeight

		var capacityScore float64
		if maxCapacity > 0 {
			capacityScore = (agent.AvailableCapacityTons / maxCapacity) * capacityWeight
		}

		reputation, err := s.reputation.ComputeReputation(agent.ID)
		if err != nil {
			return nil, err
		}
		rating := reputation.AverageScore
		if rating == 0 {
			rating = agent.AverageRating
		}
		ratingScore := (rating / 5.0) * reputationWeight

		candidates = append(candidates, &AgentMatch{
			AgentID:               agent.ID,
			Name:                  agent.Name,
			GudamName:             agent.GudamName,
			DistanceKm:            utils.RoundToDecimalPlaces(distance, 2),
			AvailableCapacityTons: agent.AvailableCapacityTons,
			AverageRating:         rating,
			MatchScore:            utils.RoundToDecimalPlaces(proximityScore+capacityScore+ratingScore, 2),
			Location:              agent.Location,
			StorageType:           agent.StorageType,
			CommissionRatePercent: agent.CommissionRatePercent,
			Phone:                 agent.Phone,
		})
	}

	// Ties keep fetch order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	return candidates, nil
}

// MatchAgents ranks all suitable agents for a farmer. An empty candidate set
// is reported as Not-Found.
func (s *MatchingService) MatchAgents(req MatchAgentRequest) (*MatchResult, error) {
	candidates, err := s.rankCandidates(req.FarmerLat, req.FarmerLon, req.QuantityTons, req.MaxDistanceKm)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.NotFound("কাছাকাছি কোনো উপযুক্ত এজেন্ট পাওয়া যায়নি (No suitable agents found nearby)")
	}

	return &MatchResult{
		BestMatch:    candidates[0],
		AllMatches:   candidates,
		TotalMatches: len(candidates),
	}, nil
}

// AutoMatchAndNotify persists the farmer's submitted coordinates, ranks the
// candidates, and notifies the top N. Agents whose notification fails stay in
// the ranked list but are excluded from the notified list. An empty result is
// not an error here.
func (s *MatchingService) AutoMatchAndNotify(req AutoMatchNotifyRequest) (*AutoMatchResult, error) {
	farmerName := "কৃষক"
	farmerRows, _, err := s.store.Select("users", store.Query{
		Filters: []store.Filter{store.Eq("id", req.FarmerID)},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(farmerRows) > 0 {
		if name := models.Str(farmerRows[0], "name"); name != "" {
			farmerName = name
		}

		// Merge the submitted coordinates into the stored location rather
		// than overwriting other location fields.
		location := models.JSONMap(farmerRows[0], "location")
		if location == nil {
			location = map[string]any{}
		}
		location["lat"] = req.FarmerLat
		location["lon"] = req.FarmerLon
		if _, err := s.store.Update("users",
			[]store.Filter{store.Eq("id", req.FarmerID)},
			store.Row{"location": models.EncodeJSON(location)}); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	candidates, err := s.rankCandidates(req.FarmerLat, req.FarmerLon, req.QuantityTons, req.MaxDistanceKm)
	if err != nil {
		return nil, err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = 5
	}
	topMatches := candidates
	if len(topMatches) > topN {
		topMatches = topMatches[:topN]
	}

	var notified []*AgentMatch
	for _, match := range topMatches {
		distStr := fmt.Sprintf("%.1f", match.DistanceKm)
		notif := s.notifier.Send(
			match.AgentID,
			NotifTypeAgentMatchRequest,
			"New Product Collection Request",
			"নতুন পণ্য সংগ্রহের অনুরোধ",
			fmt.Sprintf("Farmer %s has requested product collection from you. Distance: %s km", farmerName, distStr),
			fmt.Sprintf("কৃষক %s আপনার কাছে পণ্য সংগ্রহের অনুরোধ করেছেন। দূরত্ব: %s কিমি", farmerName, distStr),
			req.ProductID,
			false,
		)
		if notif != nil {
			match.NotificationID = notif.ID
			notified = append(notified, match)
		}
	}

	return &AutoMatchResult{
		TotalNotified:  len(notified),
		NotifiedAgents: notified,
		Matches:        candidates,
	}, nil
}

// NearbyAgents returns active agents within maxDistanceKm ranked by ascending
// distance. minCapacityTons filters when positive.
func (s *MatchingService) NearbyAgents(lat, lon, maxDistanceKm, minCapacityTons float64) ([]*NearbyAgent, error) {
	if maxDistanceKm <= 0 {
		maxDistanceKm = 50.0
	}

	agents, err := s.fetchAgents()
	if err != nil {
		return nil, err
	}

	results := make([]*NearbyAgent, 0)
	for _, agent := range agents {
		if !agent.IsActive {
			continue
		}
		agentLat, agentLon, ok := agent.Coordinates()
		if !ok {
			continue
		}

		distance := geo.HaversineKm(lat, lon, agentLat, agentLon)
		if distance > maxDistanceKm {
			continue
		}
		if minCapacityTons > 0 && agent.AvailableCapacityTons < minCapacityTons {
			continue
		}

		results = append(results, &NearbyAgent{
			AgentID:               agent.ID,
			Name:                  agent.Name,
			GudamName:             agent.GudamName,
			DistanceKm:            utils.RoundToDecimalPlaces(distance, 2),
			AvailableCapacityTons: agent.AvailableCapacityTons,
			StorageType:           agent.StorageType,
			AverageRating:         agent.AverageRating,
			Phone:                 agent.Phone,
			Location:              agent.Location,
			Resources:             agent.Resources,
			OperatingHours:        agent.OperatingHours,
			CommissionRatePercent: agent.CommissionRatePercent,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	return results, nil
}

// TopRankedAgents returns active agents ranked descending by reputation
// average, truncated to limit.
func (s *MatchingService) TopRankedAgents(limit int) ([]*TopAgent, error) {
	if limit <= 0 {
		limit = 10
	}

	agents, err := s.fetchAgents()
	if err != nil {
		return nil, err
	}

	ranked := make([]*TopAgent, 0)
	for _, agent := range agents {
		if !agent.IsActive {
			continue
		}

		reputation, err := s.reputation.ComputeReputation(agent.ID)
		if err != nil {
			return nil, err
		}

		ranked = append(ranked, &TopAgent{
			AgentID:               agent.ID,
			Name:                  agent.Name,
			GudamName:             agent.GudamName,
			AverageRating:         reputation.AverageScore,
			Badge:                 reputation.Badge,
			BadgeBN:               reputation.BadgeBN,
			TotalRatings:          reputation.TotalRatings,
			Location:              agent.Location,
			Phone:                 agent.Phone,
			StorageType:           agent.StorageType,
			AvailableCapacityTons: agent.AvailableCapacityTons,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AverageRating > ranked[j].AverageRating
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// AgentCapacity returns the capacity snapshot for one agent.
func (s *MatchingService) AgentCapacity(agentID string) (*AgentCapacityInfo, error) {
	rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("id", agentID),
		store.Eq("role", string(models.RoleAgent)),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("এজেন্ট পাওয়া যায়নি (Agent not found)")
	}

	agent := models.AgentFromRow(rows[0])

	var utilization float64
	if agent.StorageCapacityTons > 0 {
		utilization = utils.RoundToDecimalPlaces(agent.CurrentStoredTons/agent.StorageCapacityTons*100, 1)
	}

	return &AgentCapacityInfo{
		AgentID:               agent.ID,
		GudamName:             agent.GudamName,
		StorageType:           agent.StorageType,
		TotalCapacityTons:     agent.StorageCapacityTons,
		CurrentStoredTons:     agent.CurrentStoredTons,
		AvailableCapacityTons: agent.AvailableCapacityTons,
		UtilizationPercent:    utilization,
		Resources:             agent.Resources,
		OperatingHours:        agent.OperatingHours,
		ServiceAreas:          agent.ServiceAreas,
		IsAcceptingNew:        agent.AvailableCapacityTons > 0,
	}, nil
}
