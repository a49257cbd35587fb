package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"foodtruck-backend/internal/middleware"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/presence"
	"foodtruck-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TruckStore контракт хранилища грузовиков, нужный сессии приема локаций
type TruckStore interface {
	GetByOwner(ctx context.Context, ownerID uint) (*models.Truck, error)
	CommitCoordinate(ctx context.Context, truckID uint, lat, lon float64) error
}

// Таймауты сессий
const (
	readTimeout    = 1 * time.Hour
	writeWait      = 10 * time.Second
	cleanupTimeout = 5 * time.Second
)

// Настройка для обновления WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем подключения с любых источников
	},
}

// LocationIngestHandler обрабатывает push-соединение владельца грузовика с
// потоком обновлений локации. Соединение принимается на уровне транспорта
// только после проверки токена и привязки грузовика; до этого момента
// регистрировать и чистить нечего.
//
// Одновременная вторая сессия для того же грузовика не блокируется:
// действует семантика "последняя запись побеждает".
func LocationIngestHandler(trucks TruckStore, cache *presence.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен"})
			return
		}

		if claims.Role != models.RoleTruck {
			c.JSON(http.StatusForbidden, gin.H{"error": "Доступ только для владельцев грузовиков"})
			return
		}

		truck, err := trucks.GetByOwner(context.Background(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Грузовик не привязан к владельцу"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return
		}

		log.Printf("Грузовик %d: сессия приема локаций открыта", truck.ID)
		runIngestSession(conn, truck, trucks, cache)
	}
}

// runIngestSession крутит цикл приема обновлений: одно сообщение за раз,
// сначала коммит в БД, затем кэш, затем продление маркера присутствия.
// Очистка выполняется ровно один раз на любом пути завершения - мертвое
// соединение не должно оставлять "призрачный" грузовик в выдаче поиска.
func runIngestSession(conn *websocket.Conn, truck *models.Truck, trucks TruckStore, cache *presence.Cache) {
	truckID := truck.ID

	middleware.IngestSessionsActive.Inc()
	defer middleware.IngestSessionsActive.Dec()

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if err := cache.Remove(ctx, truckID); err != nil {
			log.Printf("Грузовик %d: ошибка удаления из геоиндекса при очистке: %v", truckID, err)
		}
		if err := cache.ClearLiveness(ctx, truckID); err != nil {
			log.Printf("Грузовик %d: ошибка удаления маркера присутствия при очистке: %v", truckID, err)
		}
		conn.Close()
		log.Printf("Грузовик %d: сессия приема локаций закрыта, присутствие очищено", truckID)
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Отключение клиента - штатное завершение, а не ошибка приложения
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Грузовик %d: ошибка чтения сообщения: %v", truckID, err)
			} else {
				log.Printf("Грузовик %d: соединение закрыто: %v", truckID, err)
			}
			return
		}

		var update models.LocationUpdate
		if err := json.Unmarshal(message, &update); err != nil {
			log.Printf("Грузовик %d: некорректное сообщение, сессия завершается: %v", truckID, err)
			return
		}
		if !update.Valid() {
			log.Printf("Грузовик %d: координаты вне допустимого диапазона, сессия завершается", truckID)
			return
		}
		lat, lon := update.Coords()

		ctx := context.Background()

		// Сквозная запись: сначала источник истины, потом кэш. Если коммит
		// не прошел, кэшировать координату нельзя - завершаемся.
		if err := trucks.CommitCoordinate(ctx, truckID, lat, lon); err != nil {
			log.Printf("Грузовик %d: ошибка фиксации координаты в БД, сессия завершается: %v", truckID, err)
			return
		}

		if err := cache.Upsert(ctx, truckID, lat, lon); err != nil {
			log.Printf("Грузовик %d: ошибка записи в кэш присутствия, сессия завершается: %v", truckID, err)
			return
		}

		// Атрибуты обновляем попутно, чтобы фильтрация поиска работала
		// даже для грузовика, никогда не трогавшего статус после рестарта
		name := truck.Name
		active := truck.IsActive
		if err := cache.SetAttributes(ctx, truckID, &name, &active); err != nil {
			log.Printf("Грузовик %d: ошибка записи атрибутов в кэш, сессия завершается: %v", truckID, err)
			return
		}

		if err := cache.RefreshLiveness(ctx, truckID); err != nil {
			log.Printf("Грузовик %d: ошибка продления маркера присутствия, сессия завершается: %v", truckID, err)
			return
		}

		middleware.LocationUpdatesTotal.Inc()
	}
}
