package store

import (
	"context"
	"time"

	"foodtruck-backend/internal/models"

	"gorm.io/gorm"
)

// TruckStore доступ к грузовикам в PostgreSQL - источнике истины
type TruckStore struct {
	db *gorm.DB
}

func NewTruckStore(db *gorm.DB) *TruckStore {
	return &TruckStore{db: db}
}

// GetByOwner находит грузовик, привязанный к владельцу
func (s *TruckStore) GetByOwner(ctx context.Context, ownerID uint) (*models.Truck, error) {
	var truck models.Truck
	if err := s.db.WithContext(ctx).Where("owner_user_id = ?", ownerID).First(&truck).Error; err != nil {
		return nil, err
	}
	return &truck, nil
}

// CommitCoordinate фиксирует координату грузовика в базе данных. Запись в
// кэш присутствия допустима только после успешного коммита.
func (s *TruckStore) CommitCoordinate(ctx context.Context, truckID uint, lat, lon float64) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Truck{}).
		Where("id = ?", truckID).
		Updates(map[string]interface{}{
			"location_latitude":   lat,
			"location_longitude":  lon,
			"location_updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
