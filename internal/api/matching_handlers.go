package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gudam-backend/internal/services"
)

func matchingService(c *gin.Context) *services.MatchingService {
	st := dbClient(c)
	return services.NewMatchingService(st, services.NewReputationService(st), notifier(c))
}

// MatchAgent ranks suitable agents for a farmer's collection request.
func MatchAgent(c *gin.Context) {
	var req services.MatchAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	result, err := matchingService(c).MatchAgents(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// AutoMatchNotify ranks agents and notifies the top matches directly.
func AutoMatchNotify(c *gin.Context) {
	var req services.AutoMatchNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "অবৈধ অনুরোধ (Invalid request): "+err.Error())
		return
	}

	result, err := matchingService(c).AutoMatchAndNotify(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"message": "এজেন্টদের বিজ্ঞপ্তি পাঠানো হয়েছে (Agents notified)",
	})
}

// NearbyAgents lists active agents around a coordinate, closest first.
func NearbyAgents(c *gin.Context) {
	lat := floatQuery(c, "lat", 0)
	lon := floatQuery(c, "lon", 0)
	maxDistance := floatQuery(c, "max_distance_km", 50)
	minCapacity := floatQuery(c, "min_capacity_tons", 0)

	if c.Query("lat") == "" || c.Query("lon") == "" {
		respondBadRequest(c, "lat এবং lon প্রয়োজন (lat and lon are required)")
		return
	}

	agents, err := matchingService(c).NearbyAgents(lat, lon, maxDistance, minCapacity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    agents,
		"meta": gin.H{
			"total":           len(agents),
			"max_distance_km": maxDistance,
		},
	})
}

// TopRankedAgents lists active agents by descending reputation.
func TopRankedAgents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	agents, err := matchingService(c).TopRankedAgents(limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    agents,
	})
}

// AgentCapacity returns the warehouse capacity snapshot for one agent.
func AgentCapacity(c *gin.Context) {
	agentID := c.Param("id")

	info, err := matchingService(c).AgentCapacity(agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    info,
	})
}
