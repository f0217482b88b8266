package history

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"chkobba-service/internal/model"
	"chkobba-service/internal/service/game"
	"chkobba-service/internal/service/room"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxListSize = 200

// Service persists scored rounds. It satisfies room.RoundRecorder.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Entry struct {
	Round     int                 `json:"round"`
	Points    [game.TeamCount]int `json:"points"`
	Scores    [game.TeamCount]int `json:"scores"`
	Seats     []string            `json:"seats"`
	Breakdown game.Breakdown      `json:"breakdown"`
	EndedAt   time.Time           `json:"endedAt"`
}

func (s *Service) RecordRound(ctx context.Context, rec room.RoundRecord) error {
	seats, err := json.Marshal(rec.Seats[:])
	if err != nil {
		return err
	}
	breakdown, err := json.Marshal(rec.Result.Breakdown)
	if err != nil {
		return err
	}
	row := model.RoundLog{
		RoomCode:    rec.RoomCode,
		Round:       rec.Round,
		TeamAPoints: rec.Result.Points[game.TeamA],
		TeamBPoints: rec.Result.Points[game.TeamB],
		TeamATotal:  rec.Scores[game.TeamA],
		TeamBTotal:  rec.Scores[game.TeamB],
		Seats:       datatypes.JSON(seats),
		Breakdown:   datatypes.JSON(breakdown),
		EndedAt:     rec.EndedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns the recorded rounds of a room, oldest first.
func (s *Service) List(ctx context.Context, roomCode string) ([]Entry, error) {
	var rows []model.RoundLog
	err := s.db.WithContext(ctx).
		Where("room_code = ?", strings.ToUpper(strings.TrimSpace(roomCode))).
		Order("round ASC").
		Limit(maxListSize).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			Round:   row.Round,
			Points:  [game.TeamCount]int{row.TeamAPoints, row.TeamBPoints},
			Scores:  [game.TeamCount]int{row.TeamATotal, row.TeamBTotal},
			EndedAt: row.EndedAt,
		}
		if len(row.Seats) > 0 {
			if err := json.Unmarshal(row.Seats, &e.Seats); err != nil {
				return nil, err
			}
		}
		if len(row.Breakdown) > 0 {
			if err := json.Unmarshal(row.Breakdown, &e.Breakdown); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
