package rematch

import (
	"errors"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// rematchStore is the slice of the persistent store the negotiator uses.
// ResolveIfPending is the one conditional write everything hinges on: it
// transitions a request out of PENDING and reports how many rows changed,
// which is how a lost race is detected.
type rematchStore interface {
	GameById(gameId string) (*model.Game, error)
	CreateGame(game *model.Game) error
	DeleteGame(gameId string) error
	CreateRequest(request *model.RematchRequest) error
	RequestById(id string) (*model.RematchRequest, error)
	PendingByGame(gameId string) (*model.RematchRequest, error)
	ResolveIfPending(id string, status model.RematchStatus, newGameId *string) (int64, error)
	PendingForUser(userId string) ([]PendingRematch, error)
}

// PendingRematch is a pending request enriched with opponent display
// metadata for the "pending rematches" list.
type PendingRematch struct {
	model.RematchRequest
	OpponentUsername string `json:"opponentUsername"`
	OpponentRating   int    `json:"opponentRating"`
}

type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) GameById(gameId string) (*model.Game, error) {
	var game model.Game
	result := s.db.
		Model(&model.Game{}).
		Where("id = ?", gameId).
		First(&game)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &game, nil
}

func (s *gormStore) CreateGame(game *model.Game) error {
	if game.Id == "" {
		game.Id = uuid.NewString()
	}
	result := s.db.Table(model.Game{}.TableName()).Create(game)
	return result.Error
}

func (s *gormStore) DeleteGame(gameId string) error {
	result := s.db.
		Where("id = ?", gameId).
		Delete(&model.Game{})
	return result.Error
}

func (s *gormStore) CreateRequest(request *model.RematchRequest) error {
	if request.Id == "" {
		request.Id = uuid.NewString()
	}
	result := s.db.Table(model.RematchRequest{}.TableName()).Create(request)
	return result.Error
}

func (s *gormStore) RequestById(id string) (*model.RematchRequest, error) {
	var request model.RematchRequest
	result := s.db.
		Model(&model.RematchRequest{}).
		Where("id = ?", id).
		First(&request)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &request, nil
}

func (s *gormStore) PendingByGame(gameId string) (*model.RematchRequest, error) {
	var request model.RematchRequest
	result := s.db.
		Model(&model.RematchRequest{}).
		Where("game_id = ? AND status = ?", gameId, model.RematchPending).
		Order("created_at").
		First(&request)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &request, nil
}

func (s *gormStore) ResolveIfPending(id string, status model.RematchStatus, newGameId *string) (int64, error) {
	result := s.db.
		Model(&model.RematchRequest{}).
		Where("id = ? AND status = ?", id, model.RematchPending).
		Updates(map[string]any{
			"status":      status,
			"new_game_id": newGameId,
			"updated_at":  time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (s *gormStore) PendingForUser(userId string) ([]PendingRematch, error) {
	pending := []PendingRematch{}
	result := s.db.Raw(`
		SELECT rematch_request.*
		     , profile.username AS opponent_username
		     , profile.rating AS opponent_rating
		  FROM rematch_request
		  JOIN profile
		    ON profile.id = CASE WHEN rematch_request.from_user_id = @user
		                         THEN rematch_request.to_user_id
		                         ELSE rematch_request.from_user_id END
		 WHERE rematch_request.status = 'PENDING'
		   AND (rematch_request.from_user_id = @user OR rematch_request.to_user_id = @user)
		 ORDER BY rematch_request.created_at DESC
	`, map[string]any{"user": userId}).Scan(&pending)

	if result.Error != nil {
		return nil, result.Error
	}
	return pending, nil
}
