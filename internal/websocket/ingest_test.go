package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/presence"
	"foodtruck-backend/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type committedCoord struct {
	truckID  uint
	lat, lon float64
}

// fakeTruckStore хранилище в памяти для тестов сессий
type fakeTruckStore struct {
	mu        sync.Mutex
	truck     *models.Truck
	commits   []committedCoord
	commitErr error
}

func (f *fakeTruckStore) GetByOwner(ctx context.Context, ownerID uint) (*models.Truck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.truck == nil || f.truck.OwnerUserID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	truck := *f.truck
	return &truck, nil
}

func (f *fakeTruckStore) CommitCoordinate(ctx context.Context, truckID uint, lat, lon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, committedCoord{truckID: truckID, lat: lat, lon: lon})
	return nil
}

func (f *fakeTruckStore) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commits)
}

func (f *fakeTruckStore) lastCommit() committedCoord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits[len(f.commits)-1]
}

func newIngestTestServer(t *testing.T, trucks TruckStore) (*httptest.Server, *presence.Cache) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := presence.NewCache(client, 30*time.Second)

	r := gin.New()
	r.GET("/ws/location/update", LocationIngestHandler(trucks, cache))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cache
}

func wsURL(srv *httptest.Server, path, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
}

func mustToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, role)
	require.NoError(t, err)
	return token
}

func TestIngestSessionWriteThroughAndCleanup(t *testing.T) {
	store := &fakeTruckStore{truck: &models.Truck{ID: 7, OwnerUserID: 1, Name: "Tasty Tacos", IsActive: true}}
	srv, cache := newIngestTestServer(t, store)
	ctx := context.Background()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", mustToken(t, 1, models.RoleTruck)), nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": 1.5, "longitude": 2.5}`)))

	// Коммит в БД и кэш присутствия видны после обработки сообщения
	require.Eventually(t, func() bool {
		return store.commitCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	commit := store.lastCommit()
	assert.Equal(t, uint(7), commit.truckID)
	assert.InDelta(t, 1.5, commit.lat, 0.0001)
	assert.InDelta(t, 2.5, commit.lon, 0.0001)

	require.Eventually(t, func() bool {
		live, err := cache.IsLive(ctx, 7)
		return err == nil && live
	}, 2*time.Second, 10*time.Millisecond)

	found, err := cache.NearbyActive(ctx, 1.5, 2.5, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, uint(7), found[0].ID)
	assert.Equal(t, "Tasty Tacos", found[0].Name)

	// Отключение клиента очищает присутствие целиком
	conn.Close()

	require.Eventually(t, func() bool {
		live, err := cache.IsLive(ctx, 7)
		if err != nil || live {
			return false
		}
		entries, err := cache.Query(ctx, 1.5, 2.5, 5)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIngestSessionSequentialUpdatesOverwrite(t *testing.T) {
	store := &fakeTruckStore{truck: &models.Truck{ID: 7, OwnerUserID: 1, Name: "Tasty Tacos", IsActive: true}}
	srv, cache := newIngestTestServer(t, store)
	ctx := context.Background()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", mustToken(t, 1, models.RoleTruck)), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": 1.0, "longitude": 1.0}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": 2.0, "longitude": 2.0}`)))

	require.Eventually(t, func() bool {
		return store.commitCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// В геоиндексе ровно одна запись - последняя координата
	entries, err := cache.Query(ctx, 2.0, 2.0, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 2.0, entries[0].Latitude, 0.001)
}

func TestIngestSessionMalformedMessageTerminates(t *testing.T) {
	store := &fakeTruckStore{truck: &models.Truck{ID: 7, OwnerUserID: 1}}
	srv, cache := newIngestTestServer(t, store)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", mustToken(t, 1, models.RoleTruck)), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": "north", "longitude": "west"}`)))

	// Сервер закрывает соединение, ничего не зафиксировав
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	assert.Zero(t, store.commitCount())
	entries, err := cache.Query(context.Background(), 0, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestSessionOutOfRangeCoordinateTerminates(t *testing.T) {
	store := &fakeTruckStore{truck: &models.Truck{ID: 7, OwnerUserID: 1}}
	srv, _ := newIngestTestServer(t, store)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", mustToken(t, 1, models.RoleTruck)), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": 95.0, "longitude": 10.0}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Zero(t, store.commitCount())
}

func TestIngestSessionStoreFailureFailsClosed(t *testing.T) {
	store := &fakeTruckStore{
		truck:     &models.Truck{ID: 7, OwnerUserID: 1},
		commitErr: errors.New("соединение с БД потеряно"),
	}
	srv, cache := newIngestTestServer(t, store)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", mustToken(t, 1, models.RoleTruck)), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"latitude": 1.0, "longitude": 1.0}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	// Координата, не дошедшая до источника истины, не попадает и в кэш
	entries, err := cache.Query(context.Background(), 1.0, 1.0, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestHandshakeRejections(t *testing.T) {
	store := &fakeTruckStore{truck: &models.Truck{ID: 7, OwnerUserID: 1}}
	srv, _ := newIngestTestServer(t, store)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"невалидный токен", "not-a-token", 401},
		{"роль покупателя", mustToken(t, 1, models.RoleCustomer), 403},
		{"владелец без грузовика", mustToken(t, 99, models.RoleTruck), 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/location/update", tt.token), nil)
			require.Error(t, err)
			require.Nil(t, conn)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
