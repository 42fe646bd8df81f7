package session

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the stable user reference carried by a session token.
type Identity struct {
	UserID int64  `json:"userID"`
	Email  string `json:"email"`
}

// Claims is the signed payload of a session token. The registered ID claim is the jti.
type Claims struct {
	Email  string `json:"email"`
	UserID int64  `json:"uid"`
	jwt.RegisteredClaims
}

func newClaims(id Identity) *Claims {
	return &Claims{
		Email:  id.Email,
		UserID: id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(id.UserID, 10),
		},
	}
}

// Identity returns the identity embedded in c.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}
