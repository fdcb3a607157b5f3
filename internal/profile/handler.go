package profile

import (
	"net/http"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type profileHandler struct {
	profile *profileService
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB) {
	handler := profileHandler{
		profile: &profileService{db: db},
	}

	routes := rg.Group("/profile")
	routes.GET("/:id", middleware.VerifyAuthToken, handler.getProfileById)
}

func (h profileHandler) getProfileById(c *gin.Context) {
	profile, err := h.profile.FindById(c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, profile)
}
