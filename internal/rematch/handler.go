package rematch

import (
	"errors"
	"net/http"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/middleware"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/reject"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type rematchHandler struct {
	service *rematchService
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB) {
	handler := rematchHandler{
		service: newService(newGormStore(db)),
	}

	routes := rg.Group("/rematch")
	routes.POST("", middleware.VerifyAuthToken, handler.requestRematch)
	routes.GET("/pending", middleware.VerifyAuthToken, handler.listPending)
	routes.POST("/:id/accept", middleware.VerifyAuthToken, handler.acceptRematch)
	routes.POST("/:id/decline", middleware.VerifyAuthToken, handler.declineRematch)
	routes.POST("/:id/cancel", middleware.VerifyAuthToken, handler.cancelRematch)
}

type RematchRequestBody struct {
	GameId   string `json:"gameId" binding:"required"`
	ToUserId string `json:"toUserId" binding:"required"`
}

func (h *rematchHandler) requestRematch(c *gin.Context) {
	body := RematchRequestBody{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	outcome, err := h.service.Request(body.GameId, utils.GetUserId(c), body.ToUserId)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *rematchHandler) acceptRematch(c *gin.Context) {
	result, err := h.service.Accept(c.Param("id"), utils.GetUserId(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *rematchHandler) declineRematch(c *gin.Context) {
	request, err := h.service.Decline(c.Param("id"), utils.GetUserId(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *rematchHandler) cancelRematch(c *gin.Context) {
	if _, err := h.service.Cancel(c.Param("id"), utils.GetUserId(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *rematchHandler) listPending(c *gin.Context) {
	pending, err := h.service.PendingFor(utils.GetUserId(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		problem := reject.StoreUnavailableProblem(err)
		c.JSON(problem.Status, problem)
	case errors.Is(err, ErrAlreadyResolved):
		problem := reject.AlreadyResolvedProblem()
		c.JSON(problem.Status, problem)
	case errors.Is(err, ErrNotPermitted):
		problem := reject.NotPermittedProblem()
		c.JSON(problem.Status, problem)
	case errors.Is(err, ErrNotFound):
		problem := reject.NotFoundProblem()
		c.JSON(problem.Status, problem)
	default:
		problem := reject.UnexpectedProblem(err)
		c.JSON(problem.Status, problem)
	}
}
