package presence

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
)

// NearbyTruck результат поиска: грузовик, открытый для заказов, в радиусе поиска
type NearbyTruck struct {
	ID         uint
	Name       string
	Latitude   float64
	Longitude  float64
	DistanceKm float64
}

// NearbyActive возвращает открытые для заказов грузовики в радиусе radiusKm,
// по возрастанию расстояния. Грузовики с истекшим маркером присутствия или
// без кэшированного флага активности не попадают в результат; протухшие
// записи геоиндекса при этом удаляются, чтобы не накапливать "призраков".
// Пустой результат - нормальный исход, а не ошибка.
func (c *Cache) NearbyActive(ctx context.Context, lat, lon, radiusKm float64) ([]NearbyTruck, error) {
	entries, err := c.Query(ctx, lat, lon, radiusKm)
	if err != nil {
		return nil, err
	}

	results := make([]NearbyTruck, 0, len(entries))
	for _, entry := range entries {
		live, err := c.IsLive(ctx, entry.TruckID)
		if err != nil {
			return nil, err
		}
		if !live {
			// Маркер истек, а запись в индексе осталась - чистим лениво
			if err := c.Remove(ctx, entry.TruckID); err != nil {
				log.Printf("NearbyActive: не удалось удалить протухшую запись грузовика %d: %v", entry.TruckID, err)
			}
			continue
		}

		active, err := c.redisClient.Get(ctx, activeKey(entry.TruckID)).Result()
		if err == redis.Nil {
			// Неизвестный статус считаем закрытым
			continue
		} else if err != nil {
			return nil, err
		}
		if active != "true" {
			continue
		}

		name, err := c.redisClient.Get(ctx, nameKey(entry.TruckID)).Result()
		if err == redis.Nil {
			name = ""
		} else if err != nil {
			return nil, err
		}

		results = append(results, NearbyTruck{
			ID:         entry.TruckID,
			Name:       name,
			Latitude:   entry.Latitude,
			Longitude:  entry.Longitude,
			DistanceKm: entry.DistanceKm,
		})
	}

	return results, nil
}
