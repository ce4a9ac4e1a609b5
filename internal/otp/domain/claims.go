package domain

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the payload of an issued access token. Subject carries the
// member ID.
type AccessClaims struct {
	jwt.RegisteredClaims
	Phone string `json:"phone"`
}
