package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
)

// Префиксы именованных каналов уведомлений
const (
	orderChannelPrefix  = "orders:truck:"
	statusChannelPrefix = "status:customer:"
)

// ErrTimeout возвращается Next, когда за отведенное время не пришло ни одного
// сообщения. Это не ошибка доставки - сессия использует его для периодической
// проверки живости соединения.
var ErrTimeout = errors.New("notify: ожидание сообщения истекло")

// Bus шина уведомлений поверх Redis Pub/Sub. Сообщения доставляются только
// текущим подписчикам канала; без подписчиков сообщение молча теряется.
type Bus struct {
	redisClient *redis.Client
}

// OrderEvent событие жизненного цикла заказа, публикуемое в шину
type OrderEvent struct {
	OrderID    uint   `json:"order_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	CustomerID uint   `json:"customer_id,omitempty"`
}

func NewBus(client *redis.Client) *Bus {
	return &Bus{redisClient: client}
}

// OrderChannel канал новых заказов для владельца грузовика
func OrderChannel(truckID uint) string {
	return fmt.Sprintf("%s%d", orderChannelPrefix, truckID)
}

// StatusChannel канал статусов заказов для покупателя
func StatusChannel(customerID uint) string {
	return fmt.Sprintf("%s%d", statusChannelPrefix, customerID)
}

// Publish отправляет сообщение всем текущим подписчикам канала
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("ошибка при публикации в канал %s: %w", channel, err)
	}
	return nil
}

// Subscription подписка на один канал, из которой сообщения читаются
// в порядке поступления
type Subscription struct {
	pubsub  *redis.PubSub
	channel string
}

// Subscribe оформляет подписку на канал и дожидается ее подтверждения,
// чтобы после возврата ни одно опубликованное сообщение не было пропущено
func (b *Bus) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := b.redisClient.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("ошибка при подписке на канал %s: %w", channel, err)
	}

	return &Subscription{pubsub: pubsub, channel: channel}, nil
}

// Channel возвращает имя канала подписки
func (s *Subscription) Channel() string {
	return s.channel
}

// Next ждет следующее сообщение не дольше wait. По истечении времени
// возвращает ErrTimeout, не теряя сообщений, которые еще не пришли.
func (s *Subscription) Next(ctx context.Context, wait time.Duration) (string, error) {
	for {
		received, err := s.pubsub.ReceiveTimeout(ctx, wait)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return "", ErrTimeout
			}
			return "", err
		}

		switch msg := received.(type) {
		case *redis.Message:
			return msg.Payload, nil
		default:
			// Служебные подтверждения подписки и pong пропускаем
			continue
		}
	}
}

// Close отписывается от канала и освобождает соединение
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
