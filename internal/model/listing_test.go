package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawListing_RoutePosition(t *testing.T) {
	lat, lon := 48.7, 9.18

	t.Run("both set", func(t *testing.T) {
		p := RawListing{RouteLat: &lat, RouteLon: &lon}.RoutePosition()
		require.NotNil(t, p)
		assert.Equal(t, Point{Lat: 48.7, Lon: 9.18}, *p)
	})

	t.Run("latitude only", func(t *testing.T) {
		assert.Nil(t, RawListing{RouteLat: &lat}.RoutePosition())
	})

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, RawListing{}.RoutePosition())
	})
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, UnknownCategory, CategoryOf(nil))
	assert.Equal(t, "Fahrräder", CategoryOf([]string{"Freizeit", "Fahrräder"}))
}

func TestRunState_Terminal(t *testing.T) {
	assert.False(t, RunIdle.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunAborted.Terminal())
	assert.True(t, RunFailed.Terminal())
}
