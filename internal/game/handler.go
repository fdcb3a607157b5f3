package game

import (
	"net/http"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/middleware"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type gameHandler struct {
	gameService gameService
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB) {
	handler := gameHandler{
		gameService: gameService{db: db},
	}

	routes := rg.Group("/game")
	routes.GET("/:id", middleware.VerifyAuthToken, handler.getGame)
}

// getGame serves the fetch side of the polling loops: clients watching a
// pairing or an accepted rematch read the game state from here.
func (gh *gameHandler) getGame(c *gin.Context) {
	game, err := gh.gameService.getGame(c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	// The game body is only for its participants.
	if !game.HasPlayer(utils.GetUserId(c)) {
		c.Status(http.StatusForbidden)
		return
	}

	c.JSON(http.StatusOK, game)
}
