package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")

	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotReady    = errors.New("room is not dealt yet")
	ErrNotSeated       = errors.New("connection is not seated in this room")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrReplayNotOpen   = errors.New("replay vote is not open")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrCodeExhausted   = errors.New("could not allocate a room code")

	ErrInvalidCard        = errors.New("card is not in hand")
	ErrInvalidCombination = errors.New("invalid capture combination")

	ErrInvalidProfile = errors.New("invalid profile")
)
