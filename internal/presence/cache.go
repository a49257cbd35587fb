package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Ключи Redis для геоиндекса и атрибутов грузовиков
const (
	geoKey            = "truck_locations_geo"
	presenceKeyPrefix = "presence:truck:"
)

// Cache представляет геопространственный кэш присутствия грузовиков.
// Позиции хранятся в Redis GeoSet, атрибуты (имя, флаг активности) - в
// отдельных ключах, а маркер присутствия - в ключе с TTL: без свежего
// heartbeat грузовик перестает считаться "в сети".
type Cache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// Entry запись геоиндекса, возвращаемая Query
type Entry struct {
	TruckID    uint
	Latitude   float64
	Longitude  float64
	DistanceKm float64
}

// NewCache создает кэш присутствия с указанным TTL маркера
func NewCache(client *redis.Client, livenessTTL time.Duration) *Cache {
	return &Cache{
		redisClient: client,
		ttl:         livenessTTL,
	}
}

// Upsert добавляет или перезаписывает позицию грузовика в геоиндексе
func (c *Cache) Upsert(ctx context.Context, truckID uint, lat, lon float64) error {
	err := c.redisClient.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      memberName(truckID),
		Longitude: lon,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("ошибка при записи позиции в геоиндекс: %w", err)
	}
	return nil
}

// SetAttributes обновляет кэшированные атрибуты грузовика. Поля, переданные
// как nil, остаются без изменений (частичное обновление).
func (c *Cache) SetAttributes(ctx context.Context, truckID uint, name *string, active *bool) error {
	if name != nil {
		if err := c.redisClient.Set(ctx, nameKey(truckID), *name, 0).Err(); err != nil {
			return fmt.Errorf("ошибка при записи имени грузовика в кэш: %w", err)
		}
	}
	if active != nil {
		if err := c.redisClient.Set(ctx, activeKey(truckID), strconv.FormatBool(*active), 0).Err(); err != nil {
			return fmt.Errorf("ошибка при записи статуса грузовика в кэш: %w", err)
		}
	}
	return nil
}

// Remove удаляет грузовик из геоиндекса. Удаление отсутствующего
// идентификатора не является ошибкой.
func (c *Cache) Remove(ctx context.Context, truckID uint) error {
	if err := c.redisClient.ZRem(ctx, geoKey, memberName(truckID)).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении из геоиндекса: %w", err)
	}
	return nil
}

// RefreshLiveness продлевает маркер присутствия грузовика на полный TTL
func (c *Cache) RefreshLiveness(ctx context.Context, truckID uint) error {
	if err := c.redisClient.Set(ctx, presenceKey(truckID), "online", c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при обновлении маркера присутствия: %w", err)
	}
	return nil
}

// ClearLiveness удаляет маркер присутствия грузовика
func (c *Cache) ClearLiveness(ctx context.Context, truckID uint) error {
	if err := c.redisClient.Del(ctx, presenceKey(truckID)).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении маркера присутствия: %w", err)
	}
	return nil
}

// IsLive проверяет, не истек ли маркер присутствия грузовика
func (c *Cache) IsLive(ctx context.Context, truckID uint) (bool, error) {
	n, err := c.redisClient.Exists(ctx, presenceKey(truckID)).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке маркера присутствия: %w", err)
	}
	return n > 0, nil
}

// Query возвращает все записи геоиндекса в радиусе radiusKm от центра,
// отсортированные по возрастанию расстояния. Ограничение радиуса - забота
// вызывающей стороны, кэш его не проверяет.
func (c *Cache) Query(ctx context.Context, lat, lon, radiusKm float64) ([]Entry, error) {
	locations, err := c.redisClient.GeoRadius(ctx, geoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе геоиндекса: %w", err)
	}

	entries := make([]Entry, 0, len(locations))
	for _, loc := range locations {
		id, err := strconv.ParseUint(loc.Name, 10, 64)
		if err != nil {
			// Чужой элемент в GeoSet - пропускаем
			continue
		}
		entries = append(entries, Entry{
			TruckID:    uint(id),
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			DistanceKm: loc.Dist,
		})
	}
	return entries, nil
}

func memberName(truckID uint) string {
	return strconv.FormatUint(uint64(truckID), 10)
}

func nameKey(truckID uint) string {
	return fmt.Sprintf("truck:%d:name", truckID)
}

func activeKey(truckID uint) string {
	return fmt.Sprintf("truck:%d:is_active", truckID)
}

func presenceKey(truckID uint) string {
	return presenceKeyPrefix + memberName(truckID)
}
