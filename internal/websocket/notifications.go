package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"foodtruck-backend/internal/middleware"
	"foodtruck-backend/internal/models"
	"foodtruck-backend/internal/notify"
	"foodtruck-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// drainWait ограничивает ожидание одного сообщения из шины, чтобы сессия
// периодически проверяла живость транспорта. Сообщения при этом не теряются.
const drainWait = 1 * time.Second

// NotificationsHandler обрабатывает push-соединение подписчика уведомлений.
// Роль однозначно определяет единственный канал: владелец грузовика слушает
// новые заказы своего грузовика, покупатель - статусы своих заказов. Подписка
// оформляется до приема соединения, чтобы не держать транспорт ради
// невалидного клиента.
func NotificationsHandler(bus *notify.Bus, trucks TruckStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")

		var channel string
		claims, err := utils.ValidateToken(token)
		if err == nil {
			switch claims.Role {
			case models.RoleTruck:
				// Канал новых заказов адресуется идентификатором грузовика
				if truck, err := trucks.GetByOwner(context.Background(), claims.UserID); err == nil {
					channel = notify.OrderChannel(truck.ID)
				}
			case models.RoleCustomer:
				channel = notify.StatusChannel(claims.UserID)
			}
		}

		if channel == "" {
			// Ошибки аутентификации и авторизации закрываем кодом
			// policy violation, чтобы клиент мог их отличить
			conn, upErr := upgrader.Upgrade(c.Writer, c.Request, nil)
			if upErr != nil {
				return
			}
			closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Недействительный токен или роль")
			conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			conn.Close()
			log.Printf("Сессия уведомлений отклонена: невалидный токен или роль")
			return
		}

		sub, err := bus.Subscribe(context.Background(), channel)
		if err != nil {
			log.Printf("Ошибка подписки на канал %s: %v", channel, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Шина уведомлений недоступна"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			sub.Close()
			return
		}

		log.Printf("Пользователь %d (%s): сессия уведомлений открыта, канал %s", claims.UserID, claims.Role, channel)
		runNotificationSession(conn, sub)
	}
}

// runNotificationSession пересылает клиенту каждое сообщение канала без
// изменений и в порядке поступления. Отписка от канала выполняется на любом
// пути завершения, чтобы подписки не утекали.
func runNotificationSession(conn *websocket.Conn, sub *notify.Subscription) {
	middleware.NotifySessionsActive.Inc()
	defer middleware.NotifySessionsActive.Dec()

	defer func() {
		if err := sub.Close(); err != nil {
			log.Printf("Канал %s: ошибка отписки: %v", sub.Channel(), err)
		}
		conn.Close()
		log.Printf("Канал %s: сессия уведомлений закрыта", sub.Channel())
	}()

	// Клиент ничего не отправляет, но читать соединение нужно: так мы
	// обрабатываем контрольные фреймы и сразу замечаем отключение
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		payload, err := sub.Next(context.Background(), drainWait)
		if errors.Is(err, notify.ErrTimeout) {
			// Сообщений нет - проверяем, что транспорт еще жив
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}
		if err != nil {
			log.Printf("Канал %s: ошибка чтения из шины, сессия завершается: %v", sub.Channel(), err)
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			return
		}
		middleware.NotificationsRelayed.Inc()
	}
}
