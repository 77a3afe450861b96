package run

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/pkg/geocode"
	"github.com/klanavo/klanavo/pkg/proxy"
	"github.com/klanavo/klanavo/pkg/search"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) RouteSearch(ctx context.Context, req search.Request) (*search.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Response), args.Error(1)
}

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, target string) (string, error) {
	args := m.Called(ctx, target)
	return args.String(0), args.Error(1)
}

// --- Geocoder Mock ---

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) ResolvePostal(ctx context.Context, code string) (model.GeocodeResult, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.GeocodeResult), args.Error(1)
}

func (m *mockGeocoder) ResolveText(ctx context.Context, text string) (model.GeocodeResult, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(model.GeocodeResult), args.Error(1)
}

// --- Ensure interface compliance ---
var (
	_ search.Searcher = (*mockSearcher)(nil)
	_ proxy.Fetcher   = (*mockFetcher)(nil)
	_ geocode.Client  = (*mockGeocoder)(nil)
)
