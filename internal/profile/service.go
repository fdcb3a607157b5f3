package profile

import (
	"errors"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/reject"
	"gorm.io/gorm"
)

type profileService struct {
	db *gorm.DB
}

func (s *profileService) FindById(id string) (*model.Profile, *reject.ProblemWithTrace) {
	var profile model.Profile
	result := s.db.
		Model(&model.Profile{}).
		Where("id = ?", id).
		First(&profile)

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

	return &profile, nil
}
