package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims carried by admin access tokens
type TokenClaims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
