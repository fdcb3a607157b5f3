package matchmaking

import (
	"errors"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// matchmakingStore is the slice of the persistent store this package
// mutates. Delete operations report affected-row counts; that count is the
// only concurrency-control primitive the pairing protocol relies on.
type matchmakingStore interface {
	UpsertEntry(entry model.QueueEntry) error
	DeleteEntry(userId string) (int64, error)
	Entries() ([]model.QueueEntry, error)
	EntryCount() (int64, error)
	CreateGame(game *model.Game) error
	ActiveGameFor(userId string) (*model.Game, error)
	ProfileById(userId string) (*model.Profile, error)
}

type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) UpsertEntry(entry model.QueueEntry) error {
	result := s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "joined_at"}),
		}).
		Create(&entry)
	return result.Error
}

func (s *gormStore) DeleteEntry(userId string) (int64, error) {
	result := s.db.
		Where("user_id = ?", userId).
		Delete(&model.QueueEntry{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) Entries() ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	result := s.db.
		Model(&model.QueueEntry{}).
		Order("joined_at").
		Find(&entries)
	return entries, result.Error
}

func (s *gormStore) EntryCount() (int64, error) {
	var count int64
	result := s.db.
		Model(&model.QueueEntry{}).
		Count(&count)
	return count, result.Error
}

func (s *gormStore) CreateGame(game *model.Game) error {
	if game.Id == "" {
		game.Id = uuid.NewString()
	}
	result := s.db.Table(model.Game{}.TableName()).Create(game)
	return result.Error
}

func (s *gormStore) ActiveGameFor(userId string) (*model.Game, error) {
	var game model.Game
	result := s.db.
		Model(&model.Game{}).
		Where("game_status = ? AND (player1_id = ? OR player2_id = ?)",
			model.GameActive, userId, userId).
		Order("time_created DESC").
		First(&game)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &game, nil
}

func (s *gormStore) ProfileById(userId string) (*model.Profile, error) {
	var profile model.Profile
	result := s.db.
		Model(&model.Profile{}).
		Where("id = ?", userId).
		First(&profile)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &profile, nil
}
