package api

import (
	"net/http"

	"chkobba-service/internal/config"
	"chkobba-service/internal/middleware"
	"chkobba-service/internal/service"
	"chkobba-service/internal/service/history"
	"chkobba-service/internal/service/profile"
	"chkobba-service/internal/service/room"
	"chkobba-service/internal/ws"
	pkgAuth "chkobba-service/pkg/auth"
	"chkobba-service/pkg/logger"
	"chkobba-service/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Rooms, services.Profiles)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/session", handler.CreateSession)

		profileGroup := v1.Group("/profile")
		profileGroup.Use(middleware.AuthRequired())
		{
			profileGroup.GET("", handler.GetProfile)
			profileGroup.PUT("", handler.UpdateProfile)
		}

		roomGroup := v1.Group("/rooms")
		roomGroup.Use(middleware.AuthRequired())
		{
			roomGroup.POST("", handler.CreateRoom)
			roomGroup.GET("/:code", handler.GetRoom)
			roomGroup.POST("/:code/join", handler.JoinRoom)
			roomGroup.POST("/:code/play", handler.Play)
			roomGroup.POST("/:code/replay", handler.Replay)
			roomGroup.DELETE("/:code", handler.QuitRoom)
			roomGroup.GET("/:code/history", handler.RoomHistory)
		}
	}

	r.GET("/ws/rooms/:code", wsHandler.HandleRoomWS)
}

type createRoomBody struct {
	Mode        string `json:"mode"`
	PlayerCount int    `json:"playerCount"`
	TurnSeconds *int   `json:"turnSeconds" binding:"omitempty,min=0,max=600"`
}

type playBody struct {
	CardID      string   `json:"cardId" binding:"required"`
	Combination []string `json:"combination"`
}

type updateProfileBody struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type sessionResponse struct {
	Token        string          `json:"token"`
	ConnectionID string          `json:"connectionId"`
	Profile      profile.Profile `json:"profile"`
}

func fail(c *gin.Context, err error) {
	if response.StatusOf(err) == http.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.Fail(c, err)
}

// CreateSession issues a guest token. A caller presenting a valid token
// keeps its connection id so it can reclaim its seat.
func (h *Handler) CreateSession(c *gin.Context) {
	connectionID := ""
	if token, err := middleware.TokenFromRequest(c); err == nil {
		if claims, err := pkgAuth.ParseToken(token); err == nil {
			connectionID = claims.ConnectionID
		}
	}
	if connectionID == "" {
		connectionID = pkgAuth.NewConnectionID()
	}

	token, err := pkgAuth.GenerateToken(connectionID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, sessionResponse{
		Token:        token,
		ConnectionID: connectionID,
		Profile:      h.services.Profiles.Get(c.Request.Context(), connectionID),
	})
}

func (h *Handler) GetProfile(c *gin.Context) {
	response.Success(c, h.services.Profiles.Get(c.Request.Context(), middleware.ConnectionID(c)))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.services.Profiles.Set(c.Request.Context(), middleware.ConnectionID(c), profile.Update{
		Nickname: body.Nickname,
		Avatar:   body.Avatar,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var body createRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	connectionID := middleware.ConnectionID(c)

	turnSeconds := config.GlobalConfig.Game.TurnSeconds
	if body.TurnSeconds != nil {
		turnSeconds = *body.TurnSeconds
	}
	code, err := h.services.Rooms.CreateRoom(ctx, connectionID, room.Settings{
		Mode:        body.Mode,
		PlayerCount: body.PlayerCount,
		TurnSeconds: turnSeconds,
	})
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.services.Rooms.Snapshot(ctx, code, connectionID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) GetRoom(c *gin.Context) {
	view, err := h.services.Rooms.Snapshot(c.Request.Context(), c.Param("code"), middleware.ConnectionID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	view, err := h.services.Rooms.JoinRoom(c.Request.Context(), c.Param("code"), middleware.ConnectionID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) Play(c *gin.Context) {
	var body playBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	code := c.Param("code")
	connectionID := middleware.ConnectionID(c)

	if err := h.services.Rooms.SubmitPlay(ctx, code, connectionID, body.CardID, body.Combination); err != nil {
		fail(c, err)
		return
	}
	view, err := h.services.Rooms.Snapshot(ctx, code, connectionID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) Replay(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")
	connectionID := middleware.ConnectionID(c)

	if err := h.services.Rooms.SubmitReplayVote(ctx, code, connectionID); err != nil {
		fail(c, err)
		return
	}
	view, err := h.services.Rooms.Snapshot(ctx, code, connectionID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

func (h *Handler) QuitRoom(c *gin.Context) {
	if err := h.services.Rooms.QuitRoom(c.Request.Context(), c.Param("code"), middleware.ConnectionID(c)); err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "room closed")
}

func (h *Handler) RoomHistory(c *gin.Context) {
	if h.services.History == nil {
		response.Success(c, []history.Entry{})
		return
	}
	entries, err := h.services.History.List(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, entries)
}
