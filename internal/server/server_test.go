package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/UnknownOlympus/forage/internal/server"
	"github.com/UnknownOlympus/forage/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRegistrar struct {
	createOrGetFunc func(ctx context.Context, input models.PlaceInput, opts service.Options) (*models.Place, error)
}

func (m *mockRegistrar) CreateOrGetWithOptions(
	ctx context.Context,
	input models.PlaceInput,
	opts service.Options,
) (*models.Place, error) {
	return m.createOrGetFunc(ctx, input, opts)
}

type mockGeocoder struct {
	resolveFunc func(ctx context.Context, coords models.Coordinates) *models.GeocodeResult
	clearCalls  int
}

func (m *mockGeocoder) Resolve(ctx context.Context, coords models.Coordinates) *models.GeocodeResult {
	if m.resolveFunc == nil {
		return nil
	}
	return m.resolveFunc(ctx, coords)
}

func (m *mockGeocoder) ClearCache() { m.clearCalls++ }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, registrar *mockRegistrar, geocoder *mockGeocoder, pinger *mockPinger) *server.Server {
	t.Helper()
	return server.NewServer(":0", registrar, geocoder, pinger, prometheus.NewRegistry(), slog.Default())
}

func TestHandleCreateOrGetPlace(t *testing.T) {
	t.Parallel()

	t.Run("returns the resolved place", func(t *testing.T) {
		t.Parallel()
		registrar := &mockRegistrar{
			createOrGetFunc: func(_ context.Context, input models.PlaceInput, opts service.Options) (*models.Place, error) {
				assert.Equal(t, "Puzata Hata", input.Name)
				assert.True(t, opts.SuppressExternalIDMatch)
				return &models.Place{ID: 42, Name: input.Name, Latitude: input.Latitude, Longitude: input.Longitude}, nil
			},
		}
		srv := newTestServer(t, registrar, &mockGeocoder{}, &mockPinger{})

		body := `{"name":"Puzata Hata","latitude":50.4501,"longitude":30.5234,"suppress_external_id_match":true}`
		req := httptest.NewRequest(http.MethodPost, "/v1/places", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(42), resp.ID)
		assert.Equal(t, "Puzata Hata", resp.Name)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{})

		body := `{"latitude":50.4501,"longitude":30.5234}`
		req := httptest.NewRequest(http.MethodPost, "/v1/places", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{})

		body := `{"name":"Puzata Hata","latitude":95,"longitude":30.5234}`
		req := httptest.NewRequest(http.MethodPost, "/v1/places", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps an unresolvable conflict to 409", func(t *testing.T) {
		t.Parallel()
		registrar := &mockRegistrar{
			createOrGetFunc: func(_ context.Context, _ models.PlaceInput, _ service.Options) (*models.Place, error) {
				return nil, service.ErrPlaceConflict
			},
		}
		srv := newTestServer(t, registrar, &mockGeocoder{}, &mockPinger{})

		body := `{"name":"Puzata Hata","latitude":50.4501,"longitude":30.5234}`
		req := httptest.NewRequest(http.MethodPost, "/v1/places", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("maps store failures to 500", func(t *testing.T) {
		t.Parallel()
		registrar := &mockRegistrar{
			createOrGetFunc: func(_ context.Context, _ models.PlaceInput, _ service.Options) (*models.Place, error) {
				return nil, assert.AnError
			},
		}
		srv := newTestServer(t, registrar, &mockGeocoder{}, &mockPinger{})

		body := `{"name":"Puzata Hata","latitude":50.4501,"longitude":30.5234}`
		req := httptest.NewRequest(http.MethodPost, "/v1/places", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleReverseGeocode(t *testing.T) {
	t.Parallel()

	t.Run("returns the geocode result", func(t *testing.T) {
		t.Parallel()
		geocoder := &mockGeocoder{
			resolveFunc: func(_ context.Context, coords models.Coordinates) *models.GeocodeResult {
				assert.InDelta(t, 50.4501, coords.Latitude, 1e-9)
				assert.InDelta(t, 30.5234, coords.Longitude, 1e-9)
				return &models.GeocodeResult{Address: "18 Khreshchatyk St, Kyiv"}
			},
		}
		srv := newTestServer(t, &mockRegistrar{}, geocoder, &mockPinger{})

		req := httptest.NewRequest(http.MethodGet, "/v1/geocode/reverse?lat=50.4501&lng=30.5234", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "18 Khreshchatyk St, Kyiv")
	})

	t.Run("a failed lookup is a null result, not an error", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{})

		req := httptest.NewRequest(http.MethodGet, "/v1/geocode/reverse?lat=50.4501&lng=30.5234", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":null}`, rec.Body.String())
	})

	t.Run("rejects missing or invalid coordinates", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{})

		for _, target := range []string{
			"/v1/geocode/reverse",
			"/v1/geocode/reverse?lat=abc&lng=30.5234",
			"/v1/geocode/reverse?lat=50.4501&lng=185",
		} {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}

func TestHandleClearCache(t *testing.T) {
	t.Parallel()

	geocoder := &mockGeocoder{}
	srv := newTestServer(t, &mockRegistrar{}, geocoder, &mockPinger{})

	req := httptest.NewRequest(http.MethodPost, "/v1/geocode/cache/clear", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, geocoder.clearCalls)
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("db unreachable", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, &mockRegistrar{}, &mockGeocoder{}, &mockPinger{err: assert.AnError})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
