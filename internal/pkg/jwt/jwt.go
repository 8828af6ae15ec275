package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const TokenTypeOperator = "operator"

var ErrInvalidToken = errors.New("invalid or expired token")

// Service issues the tokens that guard the operator API.
type Service interface {
	GenerateOperatorToken(subject string) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	operatorTokenExpirationTime string
	tokenAuth                   *jwtauth.JWTAuth
	now                         func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, operatorTokenExpirationTime string) Service {
	return &JWTService{
		operatorTokenExpirationTime: operatorTokenExpirationTime,
		tokenAuth:                   jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                         time.Now,
	}
}

func (j *JWTService) GenerateOperatorToken(subject string) (token string, expiresAt int64, err error) {
	if subject == "" {
		return "", 0, errors.New("operator token requires a subject")
	}
	expDuration, err := time.ParseDuration(j.operatorTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	now := j.now()
	expiresAt = now.Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"sub":  subject,
		"type": TokenTypeOperator,
		"iat":  now.Unix(),
		"exp":  expiresAt,
	})
	return tokenString, expiresAt, err
}
