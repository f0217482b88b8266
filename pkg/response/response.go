package response

import (
	"errors"
	"net/http"

	appErr "chkobba-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// Fail writes err with the status StatusOf assigns to it.
func Fail(c *gin.Context, err error) {
	Error(c, StatusOf(err), err.Error())
}

// StatusOf maps domain errors onto HTTP status codes. Unknown errors are 500.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, appErr.ErrInvalidCard),
		errors.Is(err, appErr.ErrInvalidCombination),
		errors.Is(err, appErr.ErrInvalidSettings),
		errors.Is(err, appErr.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, appErr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, appErr.ErrNotSeated),
		errors.Is(err, appErr.ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, appErr.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErr.ErrRoomFull),
		errors.Is(err, appErr.ErrRoomNotReady),
		errors.Is(err, appErr.ErrReplayNotOpen):
		return http.StatusConflict
	case errors.Is(err, appErr.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
