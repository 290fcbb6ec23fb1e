package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Player tokens bind a stable player id to a session code. They are
// issued on join and presented on the websocket connect, so a returning
// connection proves it belongs to the seat it wants to resume.

type PlayerClaims struct {
	PlayerID string `json:"player_id"`
	GameCode string `json:"game_code"`
	jwt.RegisteredClaims
}

func GeneratePlayerToken(secret, playerID, gameCode string) (string, error) {
	claims := PlayerClaims{
		PlayerID: playerID,
		GameCode: gameCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParsePlayerToken(secret, tokenString string) (*PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PlayerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*PlayerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
