package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chkobba-service/internal/middleware"
	"chkobba-service/internal/service/profile"
	"chkobba-service/internal/service/room"
	pkgAuth "chkobba-service/pkg/auth"
	appErr "chkobba-service/pkg/errors"
	"chkobba-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	rooms    *room.Service
	profiles *profile.Service
}

func NewHandler(rooms *room.Service, profiles *profile.Service) *Handler {
	return &Handler{rooms: rooms, profiles: profiles}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

func (h *Handler) HandleRoomWS(c *gin.Context) {
	code := c.Param("code")

	token, err := middleware.TokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	rm, err := h.rooms.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("room", rm.Code()),
		zap.String("phase", string(rm.Phase())),
		zap.String("connectionID", claims.ConnectionID),
	)

	cl, err := newClient(conn, claims.ConnectionID, rm, h)
	if err != nil {
		_ = conn.WriteJSON(room.OutgoingMessage{Type: room.MessageError, Data: room.ErrorPayload{Message: err.Error()}})
		conn.Close()
		return
	}
	cl.run()
}

type incomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type playData struct {
	CardID      string   `json:"cardId"`
	Combination []string `json:"combination"`
}

type profileData struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type client struct {
	conn         *websocket.Conn
	connectionID string
	room         *room.Room
	h            *Handler
	outbound     <-chan room.OutgoingMessage
	direct       chan room.OutgoingMessage
	done         chan struct{}
	pingEvery    time.Duration
}

func newClient(conn *websocket.Conn, connectionID string, rm *room.Room, h *Handler) (*client, error) {
	outbound, err := rm.Subscribe(connectionID)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:         conn,
		connectionID: connectionID,
		room:         rm,
		h:            h,
		outbound:     outbound,
		direct:       make(chan room.OutgoingMessage, 8),
		done:         make(chan struct{}),
		pingEvery:    25 * time.Second,
	}, nil
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.room.Unsubscribe(c.connectionID, c.outbound)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("connectionID", c.connectionID), zap.String("room", c.room.Code()))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming incomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.reply(room.MessageError, room.ErrorPayload{Message: "invalid payload"})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.handle(incoming); err != nil {
			c.reply(room.MessageError, room.ErrorPayload{Message: err.Error()})
			if errors.Is(err, appErr.ErrRoomNotFound) {
				return
			}
		}
	}
}

func (c *client) handle(msg incomingMessage) error {
	ctx := context.Background()
	code := c.room.Code()

	switch msg.Type {
	case "join":
		_, err := c.h.rooms.JoinRoom(ctx, code, c.connectionID)
		return err
	case "play":
		var data playData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.CardID == "" {
			return errors.New("cardId required")
		}
		return c.h.rooms.SubmitPlay(ctx, code, c.connectionID, data.CardID, data.Combination)
	case "replay":
		return c.h.rooms.SubmitReplayVote(ctx, code, c.connectionID)
	case "quit":
		return c.h.rooms.QuitRoom(ctx, code, c.connectionID)
	case "profile":
		var data profileData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return errors.New("invalid profile payload")
		}
		if _, err := c.h.profiles.Set(ctx, c.connectionID, profile.Update{Nickname: data.Nickname, Avatar: data.Avatar}); err != nil {
			return err
		}
		c.room.Refresh()
		return nil
	case "snapshot", "rejoin":
		view, err := c.room.Snapshot(c.connectionID)
		if err != nil {
			return err
		}
		c.reply(room.MessageRoomSnapshot, view)
		return nil
	case "ping":
		c.reply(room.MessagePong, gin.H{"message": "pong"})
		return nil
	default:
		return errors.New("unsupported action")
	}
}

// reply queues a message for this connection only. Writes stay on the
// write pump because a websocket allows a single writer.
func (c *client) reply(msgType string, data interface{}) {
	select {
	case c.direct <- room.OutgoingMessage{Type: msgType, Data: data}:
	default:
		logger.Log.Warn("ws direct channel full", zap.String("connectionID", c.connectionID))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := c.write(msg); err != nil {
				return
			}
		case msg := <-c.direct:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(msg room.OutgoingMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.String("connectionID", c.connectionID), zap.String("room", c.room.Code()))
		return err
	}
	return nil
}
