package auth

import (
	"errors"
	"time"

	"chkobba-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

const ScopeGuest = "guest"

// Claims identify one connection. ConnectionID is stable for the lifetime of
// the token so a player can reconnect to the seat they hold.
type Claims struct {
	ConnectionID string `json:"cid"`
	Scope        string `json:"scope"`
	jwt.RegisteredClaims
}

// NewConnectionID returns a fresh guest identity.
func NewConnectionID() string {
	return uuid.NewString()
}

func GenerateToken(connectionID string) (string, error) {
	if connectionID == "" {
		return "", ErrInvalidToken
	}
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	claims := Claims{
		ConnectionID: connectionID,
		Scope:        ScopeGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   connectionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.GlobalConfig.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ConnectionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
