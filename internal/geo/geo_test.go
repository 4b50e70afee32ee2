package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKmSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(23.8103, 90.4125, 23.8103, 90.4125))
}

func TestHaversineKmSymmetry(t *testing.T) {
	forward := HaversineKm(23.8103, 90.4125, 22.3569, 91.7832)
	backward := HaversineKm(22.3569, 91.7832, 23.8103, 90.4125)
	assert.InDelta(t, forward, backward, 1e-9)
}

func TestHaversineKmDhakaToChittagong(t *testing.T) {
	// Great-circle distance between the two cities is about 214 km.
	distance := HaversineKm(23.8103, 90.4125, 22.3569, 91.7832)
	assert.InDelta(t, 214.0, distance, 3.0)
}

func TestHaversineKmOneDegreeOfLatitude(t *testing.T) {
	// One degree of latitude on a 6371 km sphere is about 111.19 km.
	distance := HaversineKm(23.0, 90.0, 24.0, 90.0)
	assert.InDelta(t, 111.19, distance, 0.2)
}

func TestHaversineKmNeverNegative(t *testing.T) {
	assert.GreaterOrEqual(t, HaversineKm(-35.0, 150.0, 60.0, -120.0), 0.0)
}
