package matching

import (
	"net/http"
	"strconv"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/channel"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/amity-social/amity/internal/notify"
	"github.com/gin-gonic/gin"
)

const likedYouPageSize = 20

// Registrar ties the matching service into the HTTP server
type Registrar struct {
	appCtx     *app.AppContext
	dispatcher *notify.Dispatcher
}

// NewRegistrar creates a new Registrar for the matching service
func NewRegistrar(appCtx *app.AppContext, dispatcher *notify.Dispatcher) *Registrar {
	return &Registrar{appCtx: appCtx, dispatcher: dispatcher}
}

// Register attaches the matching routes to the router
func (r *Registrar) Register(router *gin.Engine) {
	svc := NewService(r.appCtx, r.dispatcher)

	v1 := router.Group("/v1")
	v1.POST("/likes", svc.handleSubmitLike)
	v1.GET("/users/:id/liked-you", svc.handleListLikedYou)
	v1.GET("/users/:id/matches", svc.handleListMatches)
	v1.GET("/users/:id/unread-count", svc.handleUnreadCount)
	v1.POST("/matches/read", svc.handleMarkMatchRead)
	v1.POST("/requests", svc.handleSendRequest)
	v1.POST("/requests/accept", svc.handleAcceptRequest)
	v1.POST("/requests/decline", svc.handleDeclineRequest)
	v1.POST("/requests/cancel", svc.handleCancelRequest)
	v1.POST("/requests/seen", svc.handleMarkRequestSeen)
	v1.GET("/users/:id/requests/incoming", svc.handleListIncoming)
	v1.GET("/users/:id/requests/sent", svc.handleListSent)
	v1.POST("/matches/adopt", svc.handleAdoptMatch)
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

type pairBody struct {
	ActorUserID     string `json:"actor_user_id" binding:"required"`
	RecipientUserID string `json:"recipient_user_id" binding:"required"`
}

func (b pairBody) ids() (uint64, uint64, error) {
	actor, err := parseUserID(b.ActorUserID)
	if err != nil {
		return 0, 0, err
	}
	recipient, err := parseUserID(b.RecipientUserID)
	if err != nil {
		return 0, 0, err
	}
	return actor, recipient, nil
}

func (s *Service) handleSubmitLike(c *gin.Context) {
	var body pairBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	actor, recipient, err := body.ids()
	if err != nil {
		fail(c, err)
		return
	}

	s.appCtx.Logger.Debug("SubmitLike called", "actor", actor, "recipient", recipient)

	newMatch, err := s.SubmitLike(c.Request.Context(), actor, recipient)
	if err != nil {
		s.appCtx.Logger.Error("SubmitLike failed", "err", err)
		fail(c, err)
		return
	}

	resp := gin.H{"new_match": newMatch}
	if newMatch {
		resp["channel_id"] = channel.ID(actor, recipient)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleListLikedYou(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var token *string
	if t := c.Query("pagination_token"); t != "" {
		token = &t
	}
	newOnly := c.Query("new") == "1"

	likers, nextToken, err := s.ListLikedYou(c.Request.Context(), userID, token, likedYouPageSize, newOnly)
	if err != nil {
		s.appCtx.Logger.Error("ListLikedYou failed", "err", err)
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(likers))
	for _, l := range likers {
		out = append(out, gin.H{
			"user_id":        strconv.FormatUint(l.UserID, 10),
			"unix_timestamp": l.Timestamp.UnixMilli(),
		})
	}
	resp := gin.H{"likers": out}
	if nextToken != nil {
		resp["next_pagination_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleListMatches(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	others, err := s.ListMatches(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(others))
	for _, other := range others {
		out = append(out, gin.H{
			"user_id":    strconv.FormatUint(other, 10),
			"channel_id": channel.ID(userID, other),
		})
	}
	c.JSON(http.StatusOK, gin.H{"matches": out})
}

func (s *Service) handleUnreadCount(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	count, err := s.UnreadMatchCount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

type markReadBody struct {
	UserID      string `json:"user_id" binding:"required"`
	OtherUserID string `json:"other_user_id" binding:"required"`
}

func (s *Service) handleMarkMatchRead(c *gin.Context) {
	var body markReadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	userID, err := parseUserID(body.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	otherID, err := parseUserID(body.OtherUserID)
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.MarkMatchRead(c.Request.Context(), userID, otherID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type requestBody struct {
	SenderUserID   string `json:"sender_user_id" binding:"required"`
	ReceiverUserID string `json:"receiver_user_id" binding:"required"`
}

func (b requestBody) ids() (uint64, uint64, error) {
	sender, err := parseUserID(b.SenderUserID)
	if err != nil {
		return 0, 0, err
	}
	receiver, err := parseUserID(b.ReceiverUserID)
	if err != nil {
		return 0, 0, err
	}
	return sender, receiver, nil
}

func (s *Service) handleSendRequest(c *gin.Context) {
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	sender, receiver, err := body.ids()
	if err != nil {
		fail(c, err)
		return
	}

	id, created, err := s.SendMessageRequest(c.Request.Context(), sender, receiver)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"request_id": id, "created": created})
}

func (s *Service) handleAcceptRequest(c *gin.Context) {
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	sender, receiver, err := body.ids()
	if err != nil {
		fail(c, err)
		return
	}

	newMatch, err := s.AcceptMessageRequest(c.Request.Context(), receiver, sender)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"new_match": newMatch}
	if newMatch {
		resp["channel_id"] = channel.ID(sender, receiver)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleDeclineRequest(c *gin.Context) {
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	sender, receiver, err := body.ids()
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.DeclineMessageRequest(c.Request.Context(), receiver, sender); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleCancelRequest(c *gin.Context) {
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	sender, receiver, err := body.ids()
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.CancelMessageRequest(c.Request.Context(), sender, receiver); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type seenBody struct {
	UserID    string `json:"user_id" binding:"required"`
	RequestID string `json:"request_id" binding:"required"`
}

func (s *Service) handleMarkRequestSeen(c *gin.Context) {
	var body seenBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	userID, err := parseUserID(body.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.MarkRequestSeen(c.Request.Context(), userID, body.RequestID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleListIncoming(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	reqs, err := s.ListIncomingRequests(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, gin.H{
			"request_id":     req.ID,
			"sender_id":      strconv.FormatUint(req.SenderID, 10),
			"receiver_id":    strconv.FormatUint(req.ReceiverID, 10),
			"seen":           req.Seen,
			"unix_timestamp": req.CreatedAt.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Service) handleListSent(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	reqs, err := s.ListSentRequests(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, gin.H{
			"request_id":     req.ID,
			"sender_id":      strconv.FormatUint(req.SenderID, 10),
			"receiver_id":    strconv.FormatUint(req.ReceiverID, 10),
			"unix_timestamp": req.CreatedAt.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

type adoptBody struct {
	UserAID string `json:"user_a_id" binding:"required"`
	UserBID string `json:"user_b_id" binding:"required"`
}

// handleAdoptMatch is the reconciliation push-up endpoint: clients submit
// matches the authoritative store does not know yet. Idempotent, so it may
// be retried indefinitely.
func (s *Service) handleAdoptMatch(c *gin.Context) {
	var body adoptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, svcErr.Invalid(err.Error()))
		return
	}
	a, err := parseUserID(body.UserAID)
	if err != nil {
		fail(c, err)
		return
	}
	b, err := parseUserID(body.UserBID)
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.AdoptMatch(c.Request.Context(), a, b); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
