package room

import (
	"time"

	"chkobba-service/internal/service/game"
)

const (
	MessageRoomSnapshot = "room_snapshot"
	MessageRoundStarted = "round_started"
	MessageStateUpdated = "state_updated"
	MessageRoundEnded   = "round_ended"
	MessageReplayStatus = "replay_status"
	MessageRoomClosed   = "room_closed"
	MessageError        = "error"
	MessagePong         = "pong"
)

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type RoundEndedPayload struct {
	Round     int                 `json:"round"`
	Points    [game.TeamCount]int `json:"points"`
	Breakdown game.Breakdown      `json:"breakdown"`
	Scores    [game.TeamCount]int `json:"scores"`
	Swept     []game.Card         `json:"swept"`
	SweptTo   string              `json:"sweptTo"`
}

type ReplayStatusPayload struct {
	Votes int `json:"votes"`
	Total int `json:"total"`
}

type RoomClosedPayload struct {
	Code string `json:"code"`
	By   string `json:"by"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// RoundRecord is handed to a RoundRecorder once a round has been scored.
type RoundRecord struct {
	RoomCode string
	Round    int
	Seats    [game.SeatCount]string
	Result   game.RoundResult
	Scores   [game.TeamCount]int
	EndedAt  time.Time
}
