package matchmaking

import (
	"errors"
	"net/http"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/middleware"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/reject"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type matchmakingHandler struct {
	service *matchmakingService
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB) {
	staleAfter := time.Duration(viper.GetInt("QUEUE_STALE_MINUTES")) * time.Minute
	handler := matchmakingHandler{
		service: newService(newGormStore(db), staleAfter),
	}

	routes := rg.Group("/matchmaking")
	routes.POST("/queue", middleware.VerifyAuthToken, handler.joinQueue)
	routes.DELETE("/queue", middleware.VerifyAuthToken, handler.leaveQueue)
	routes.GET("/queue/size", middleware.VerifyAuthToken, handler.queueSize)
	routes.POST("/pair", middleware.VerifyAuthToken, handler.attemptPairing)
	routes.GET("/status", middleware.VerifyAuthToken, handler.searchStatus)
}

func (h *matchmakingHandler) joinQueue(c *gin.Context) {
	userId := utils.GetUserId(c)

	rating, err := h.service.RatingOf(userId)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.service.Join(userId, rating); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *matchmakingHandler) leaveQueue(c *gin.Context) {
	if err := h.service.Leave(utils.GetUserId(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *matchmakingHandler) queueSize(c *gin.Context) {
	count, err := h.service.QueueSize()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *matchmakingHandler) attemptPairing(c *gin.Context) {
	userId := utils.GetUserId(c)

	rating, err := h.service.RatingOf(userId)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.service.AttemptPairing(userId, rating)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !result.Matched {
		c.JSON(http.StatusOK, gin.H{"status": "searching"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "matched", "game": result.Game})
}

func (h *matchmakingHandler) searchStatus(c *gin.Context) {
	status, err := h.service.Status(utils.GetUserId(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrQueueUnavailable):
		problem := reject.StoreUnavailableProblem(err)
		c.JSON(problem.Status, problem)
	case errors.Is(err, ErrUnknownPlayer):
		problem := reject.NotFoundProblem()
		c.JSON(problem.Status, problem)
	default:
		problem := reject.UnexpectedProblem(err)
		c.JSON(problem.Status, problem)
	}
}
