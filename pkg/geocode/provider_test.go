package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/resilience"
)

func matched(lat, lon float64, locality, label string) *Result {
	return &Result{Latitude: lat, Longitude: lon, Locality: locality, Label: label, Matched: true}
}

func unmatched() *Result { return &Result{Matched: false} }

func TestResolver_ResolvePostal_PrimaryHit(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, result: matched(48.01, 8.69, "Talheim", "")}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(1, 1, "x", "")}

	res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, model.Point{Lat: 48.01, Lon: 8.69}, *res.Position)
	assert.Equal(t, "78607 Talheim", res.DisplayLabel)
	assert.Equal(t, 0, secondary.calls())
}

func TestResolver_ResolvePostal_FallsBackToSecondary(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, result: unmatched()}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "Talheim", "")}

	res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, "78607 Talheim", res.DisplayLabel)
	assert.Equal(t, []string{"78607"}, secondary.postals)
}

func TestResolver_ResolvePostal_PrimaryErrorFallsBack(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, err: errors.New("status 500")}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "", "")}

	res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, "78607", res.DisplayLabel, "no locality leaves the bare code")
}

func TestResolver_ResolvePostal_BothEmpty(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, result: unmatched()}
	secondary := &mockProvider{name: "nominatim", available: true, result: unmatched()}

	res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
	require.NoError(t, err)
	assert.Equal(t, model.GeocodeResult{DisplayLabel: "78607"}, res)
}

func TestResolver_ResolvePostal_CountryLevelLocality(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, result: matched(51.1, 10.4, "Deutschland", "")}

	t.Run("secondary preferred", func(t *testing.T) {
		secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "Talheim", "")}
		res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
		require.NoError(t, err)
		assert.Equal(t, "78607 Talheim", res.DisplayLabel)
		assert.InDelta(t, 48.0, res.Position.Lat, 1e-9)
	})

	t.Run("primary position kept", func(t *testing.T) {
		secondary := &mockProvider{name: "nominatim", available: true, result: unmatched()}
		res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "78607")
		require.NoError(t, err)
		require.NotNil(t, res.Position)
		assert.InDelta(t, 51.1, res.Position.Lat, 1e-9)
		assert.Equal(t, "78607", res.DisplayLabel)
	})
}

func TestResolver_ResolvePostal_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &mockProvider{name: "ors", available: true, result: unmatched(), onCall: cancel}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "Talheim", "")}

	res, err := NewResolver(primary, secondary).ResolvePostal(ctx, "78607")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Position)
	assert.Equal(t, 0, secondary.calls(), "secondary must not be tried after cancellation")
}

func TestResolver_ResolvePostal_Empty(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true}
	res, err := NewResolver(primary, nil).ResolvePostal(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, res.Position)
	assert.Equal(t, 0, primary.calls())
}

func TestResolver_SkipsUnavailable(t *testing.T) {
	primary := &mockProvider{name: "ors", available: false, result: matched(1, 1, "x", "")}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(2, 2, "Ulm", "")}

	res, err := NewResolver(primary, secondary).ResolvePostal(context.Background(), "89073")
	require.NoError(t, err)
	assert.Equal(t, 0, primary.calls())
	assert.Equal(t, "89073 Ulm", res.DisplayLabel)
}

func TestResolver_BreakerSkipsFailingPrimary(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, err: errors.New("down")}
	secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "Talheim", "")}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})

	r := NewResolver(primary, secondary, WithBreaker(cb))
	for i := 0; i < 4; i++ {
		res, err := r.ResolvePostal(context.Background(), "78607")
		require.NoError(t, err)
		require.NotNil(t, res.Position)
	}
	assert.Equal(t, 2, primary.calls(), "open circuit stops calling the primary")
	assert.Equal(t, 4, secondary.calls())
}

func TestResolver_ResolveText(t *testing.T) {
	t.Run("primary label", func(t *testing.T) {
		primary := &mockProvider{name: "ors", available: true, result: matched(48.0, 8.7, "", "Talheim, BW, Germany")}
		res, err := NewResolver(primary, nil).ResolveText(context.Background(), "Talheim")
		require.NoError(t, err)
		assert.Equal(t, "Talheim, BW, Germany", res.DisplayLabel)
		assert.Equal(t, []string{"Talheim, Deutschland"}, primary.texts)
	})

	t.Run("primary without label", func(t *testing.T) {
		primary := &mockProvider{name: "ors", available: true, result: matched(48.0, 8.7, "", "")}
		res, err := NewResolver(primary, nil).ResolveText(context.Background(), "Talheim")
		require.NoError(t, err)
		assert.Equal(t, "Talheim", res.DisplayLabel)
	})

	t.Run("secondary locality", func(t *testing.T) {
		primary := &mockProvider{name: "ors", available: true, result: unmatched()}
		secondary := &mockProvider{name: "nominatim", available: true, result: matched(48.0, 8.7, "Talheim", "")}
		res, err := NewResolver(primary, secondary, WithCountryName("")).ResolveText(context.Background(), "Talheim Ortsmitte")
		require.NoError(t, err)
		assert.Equal(t, "Talheim", res.DisplayLabel)
		assert.Equal(t, []string{"Talheim Ortsmitte"}, secondary.texts)
	})

	t.Run("unresolved", func(t *testing.T) {
		primary := &mockProvider{name: "ors", available: true, err: errors.New("timeout")}
		secondary := &mockProvider{name: "nominatim", available: true, err: errors.New("Proxy HTTP 502")}
		res, err := NewResolver(primary, secondary).ResolveText(context.Background(), "Nirgendwo")
		require.NoError(t, err)
		assert.Equal(t, model.GeocodeResult{DisplayLabel: "Nirgendwo"}, res)
	})
}

func TestResolver_RateLimit(t *testing.T) {
	_, ok := NewResolver(&mockProvider{name: "x"}, nil).RateLimit()
	assert.False(t, ok)

	ors := NewORSProvider()
	ors.rateLimit = RateLimit{Limit: "100", Remaining: "7"}
	ors.seen = true
	rl, ok := NewResolver(ors, nil).RateLimit()
	require.True(t, ok)
	assert.Equal(t, "7", rl.Remaining)
}

func TestResolver_Cache(t *testing.T) {
	primary := &mockProvider{name: "ors", available: true, result: matched(48.01, 8.69, "Talheim", "")}
	r := NewResolver(primary, nil, WithCache(time.Hour))

	for i := 0; i < 3; i++ {
		res, err := r.ResolvePostal(context.Background(), "78607")
		require.NoError(t, err)
		assert.Equal(t, "78607 Talheim", res.DisplayLabel)
	}
	assert.Equal(t, 1, primary.calls())
}
