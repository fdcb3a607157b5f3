package game

import (
	"errors"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/reject"
	"gorm.io/gorm"
)

type gameService struct {
	db *gorm.DB
}

func (gs *gameService) getGame(gameId string) (*model.Game, *reject.ProblemWithTrace) {
	var game model.Game
	result := gs.db.
		Model(&model.Game{}).
		Where("id = ?", gameId).
		First(&game)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, &reject.ProblemWithTrace{
			Problem: reject.NotFoundProblem(),
			Cause:   result.Error,
		}
	}
	if result.Error != nil {
		return nil, &reject.ProblemWithTrace{
			Problem: reject.StoreUnavailableProblem(result.Error),
			Cause:   result.Error,
		}
	}

	return &game, nil
}
