package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foodtruck-backend/internal/config"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/presence"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchRouter(t *testing.T) (*gin.Engine, *presence.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := presence.NewCache(client, 30*time.Second)

	cfg := &config.Config{MaxSearchRadiusKm: 15}

	r := gin.New()
	r.POST("/trucks/nearby", SearchNearby(cache, cfg))
	return r, cache
}

func seedActiveTruck(t *testing.T, cache *presence.Cache, id uint, name string, lat, lon float64) {
	t.Helper()
	ctx := context.Background()
	active := true

	require.NoError(t, cache.Upsert(ctx, id, lat, lon))
	require.NoError(t, cache.SetAttributes(ctx, id, &name, &active))
	require.NoError(t, cache.RefreshLiveness(ctx, id))
}

func doSearch(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trucks/nearby", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSearchNearbyReturnsActiveTrucks(t *testing.T) {
	r, cache := newSearchRouter(t)
	seedActiveTruck(t, cache, 7, "Tasty Tacos", 1.0, 1.0)

	w := doSearch(r, `{"location": {"latitude": 1.0, "longitude": 1.0}, "radius_km": 5}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trucks []models.NearbyTruckResponse `json:"trucks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Trucks, 1)
	assert.Equal(t, uint(7), resp.Trucks[0].ID)
	assert.Equal(t, "Tasty Tacos", resp.Trucks[0].Name)
	assert.True(t, resp.Trucks[0].IsActive)
}

func TestSearchNearbyEmptyAreaReturnsEmptyList(t *testing.T) {
	r, _ := newSearchRouter(t)

	w := doSearch(r, `{"location": {"latitude": 50.0, "longitude": 50.0}, "radius_km": 5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"trucks": []}`, w.Body.String())
}

func TestSearchNearbyDefaultsRadius(t *testing.T) {
	r, cache := newSearchRouter(t)
	seedActiveTruck(t, cache, 7, "Tasty Tacos", 1.0, 1.0)

	// Радиус не передан - используется значение по умолчанию
	w := doSearch(r, `{"location": {"latitude": 1.0, "longitude": 1.0}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trucks []models.NearbyTruckResponse `json:"trucks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Trucks, 1)
}

func TestSearchNearbyRejectsOversizedRadius(t *testing.T) {
	r, _ := newSearchRouter(t)

	w := doSearch(r, `{"location": {"latitude": 1.0, "longitude": 1.0}, "radius_km": 100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchNearbyRejectsMalformedBody(t *testing.T) {
	r, cache := newSearchRouter(t)
	seedActiveTruck(t, cache, 7, "Tasty Tacos", 0.0, 0.0)

	// Запрос без точки поиска - ошибка запроса, а не поиск в (0,0)
	for _, body := range []string{`{"radius_km": 5}`, `{}`, `not-json`} {
		w := doSearch(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestOwnerUpdateMovementRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/owner/movement", OwnerUpdateMovement(nil))

	// Тело валидируется до обращения к БД
	for _, body := range []string{`{}`, `{"movement_status": "flying"}`, `{"movement_status": ""}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/owner/movement", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}
