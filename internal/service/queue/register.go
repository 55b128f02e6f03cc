package queue

import (
	"net/http"
	"strconv"

	"github.com/amity-social/amity/internal/app"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/gin-gonic/gin"
)

// Registrar ties the queue ranker into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the queue service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the queue routes to the router
func (r *Registrar) Register(router *gin.Engine) {
	ranker := NewRanker(r.appCtx)
	router.GET("/v1/users/:id/queue-position", ranker.handlePosition)
}

func (r *Ranker) handlePosition(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		err := svcErr.Invalid("user id must be a valid uint64")
		c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	pos, err := r.Position(c.Request.Context(), userID)
	if err != nil {
		r.appCtx.Logger.Error("Position failed", "user", userID, "err", err)
		c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	// position is null for users not on the waitlist
	c.JSON(http.StatusOK, gin.H{"position": pos})
}
