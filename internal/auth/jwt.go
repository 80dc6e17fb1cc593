package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider はプロバイダ発行のIDトークン（JWT）を検証するProvider実装です
type JWTProvider struct {
	secret []byte
	issuer string
}

func NewJWTProvider(secret []byte, issuer string) *JWTProvider {
	return &JWTProvider{secret: secret, issuer: issuer}
}

// idClaims はIDトークンに含まれるプロフィール情報です
type idClaims struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func (p *JWTProvider) Verify(_ context.Context, rawToken string) (Profile, error) {
	claims := &idClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if !token.Valid {
		return Profile{}, fmt.Errorf("%w: invalid token", ErrProviderFailure)
	}

	return Profile{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}

// IssueToken はIDトークンを発行します
// 本来はプロバイダ側の責務ですが、開発・テストでのサインインに使います
func (p *JWTProvider) IssueToken(userId, name, picture string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := idClaims{
		Name:    name,
		Picture: picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}
