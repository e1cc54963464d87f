package services

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"strings"
	"time"
)

type IAuthService interface {
	Login(username string) (Token, error)
}

// AuthService issues bearer credentials. There is no password and no user store:
// any username meeting the length rule gets a token.
type AuthService struct {
	secret            []byte
	authTokenDuration time.Duration
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(secret []byte, authTokenDuration time.Duration) IAuthService {
	return &AuthService{secret: secret, authTokenDuration: authTokenDuration}
}

func (s *AuthService) Login(username string) (Token, error) {
	username = strings.TrimSpace(username)
	if err := auth.ValidateLogin(auth.LoginRequest{Username: username}); err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(username, s.secret, s.authTokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
