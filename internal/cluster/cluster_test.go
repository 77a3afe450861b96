package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_Assign(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)

	a := s.Assign(48.70, 9.18)
	b := s.Assign(48.7015, 9.1810)
	c := s.Assign(48.80, 9.18)

	assert.Equal(t, 0, a.ID)
	assert.Equal(t, 0, b.ID, "point within radius joins the first cluster")
	assert.Equal(t, 1, c.ID, "point 11km away starts a new cluster")
	assert.Equal(t, 2, s.Len())
}

func TestSet_AnchorNeverMoves(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)
	s.Assign(48.70, 9.18)
	s.Assign(48.7015, 9.1810)

	got := s.Clusters()
	assert.Equal(t, 48.70, got[0].AnchorLat)
	assert.Equal(t, 9.18, got[0].AnchorLon)
}

func TestSet_SamePointTwice(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)
	first := s.Assign(52.52, 13.405)
	second := s.Assign(52.52, 13.405)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestSet_Threshold(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)
	s.Assign(48.0, 9.0)

	// 0.00135 deg of latitude is about 150m, 0.00225 deg about 250m.
	assert.Equal(t, 0, s.Assign(48.00135, 9.0).ID)
	assert.Equal(t, 1, s.Assign(47.99775, 9.0).ID)
}

func TestSet_FirstMatchWins(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)
	s.Assign(48.0, 9.0)
	s.Assign(48.0030, 9.0) // ~334m north, own cluster

	// Midpoint is ~167m from both anchors; the earlier cluster wins.
	assert.Equal(t, 0, s.Assign(48.0015, 9.0).ID)
}

func TestSet_IDsDenseAndOrdered(t *testing.T) {
	s := NewSet(DefaultRadiusMeters)
	for i := 0; i < 5; i++ {
		s.Assign(48.0+float64(i)*0.1, 9.0)
	}
	for i, c := range s.Clusters() {
		assert.Equal(t, i, c.ID)
	}
}

func TestSet_ClustersIsCopy(t *testing.T) {
	s := NewSet(0)
	s.Assign(48.0, 9.0)
	got := s.Clusters()
	got[0].AnchorLat = 0
	assert.Equal(t, 48.0, s.Clusters()[0].AnchorLat)
}
