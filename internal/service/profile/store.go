package profile

import (
	"context"
	"errors"

	"chkobba-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, connectionID string) (*Profile, error) {
	var row model.Profile
	if err := s.db.WithContext(ctx).First(&row, "connection_id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Profile{
		ConnectionID: row.ConnectionID,
		Nickname:     row.Nickname,
		Avatar:       row.Avatar,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func (s *GormStore) Save(ctx context.Context, p Profile) error {
	row := model.Profile{
		ConnectionID: p.ConnectionID,
		Nickname:     p.Nickname,
		Avatar:       p.Avatar,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "avatar", "updated_at"}),
	}).Create(&row).Error
}
