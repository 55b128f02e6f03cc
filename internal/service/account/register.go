package account

import (
	"net/http"
	"strconv"

	"github.com/amity-social/amity/internal/app"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/gin-gonic/gin"
)

// Registrar ties the account service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the account service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the account routes to the router
func (r *Registrar) Register(router *gin.Engine) {
	svc := NewService(r.appCtx)

	v1 := router.Group("/v1")
	v1.POST("/users/:id/heartbeat", svc.handleHeartbeat)
	v1.GET("/users/:id/online", svc.handleOnline)
	v1.POST("/subscriptions", svc.handleRegisterSubscription)
	v1.DELETE("/subscriptions/:id", svc.handleUnregisterSubscription)
	v1.PUT("/admin/users/:id/status", svc.handleOverrideStatus)
}

func fail(c *gin.Context, err error) {
	c.JSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
}

func parseUserID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.Invalid("user id must be a valid uint64")
	}
	return id, nil
}

func (s *Service) handleHeartbeat(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.Heartbeat(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleOnline(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	online, err := s.Online(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

type subscriptionBody struct {
	UserID string `json:"user_id" binding:"required"`
	Target string `json:"target" binding:"required"`
}

func (s *Service) handleRegisterSubscription(c *gin.Context) {
	var body subscriptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	userID, err := parseUserID(body.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	id, err := s.RegisterSubscription(c.Request.Context(), userID, body.Target)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription_id": id})
}

func (s *Service) handleUnregisterSubscription(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		fail(c, svcErr.Invalid("subscription id required"))
		return
	}
	if err := s.UnregisterSubscription(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type overrideBody struct {
	Status string `json:"status" binding:"required"`
	Role   string `json:"role"`
}

func (s *Service) handleOverrideStatus(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	var body overrideBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}

	if err := s.OverrideStatus(c.Request.Context(), userID, body.Status, body.Role); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
