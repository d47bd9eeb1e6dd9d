package jwttoken

import (
	authmw "worktrust/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.Claims {
	return &authmw.Claims{
		UserID: claims.UserID,
		JTI:    claims.ID,
	}
}

// JWTServiceAdapter satisfies authmw.TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
