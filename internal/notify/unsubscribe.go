package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// UnsubscribeTokens signs and verifies the one-click unsubscribe tokens
// embedded in notification emails. A token identifies the user and nothing
// else; verifying it flips the master notify switch off.
type UnsubscribeTokens struct {
	signingKey []byte
}

func NewUnsubscribeTokens(secret string) *UnsubscribeTokens {
	return &UnsubscribeTokens{signingKey: []byte(secret)}
}

// Generate returns a signed token for the user. Tokens are long-lived on
// purpose: an unsubscribe link at the bottom of a year-old email must still
// work.
func (u *UnsubscribeTokens) Generate(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"aud": "unsubscribe",
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.signingKey)
}

// Verify checks the token signature and returns the user it was issued for.
func (u *UnsubscribeTokens) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return u.signingKey, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid unsubscribe token")
	}
	if !claims.VerifyAudience("unsubscribe", true) {
		return 0, fmt.Errorf("unsubscribe token has wrong audience")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, fmt.Errorf("unsubscribe token has no subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unsubscribe token subject: %w", err)
	}
	return userID, nil
}
