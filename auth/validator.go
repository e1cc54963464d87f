package auth

import (
	"chat-relay/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginRequest is what the identity issuance endpoint accepts. There is no password.
type LoginRequest struct {
	Username string `validate:"required,min=3,max=32"`
}

// JoinRequest is the payload of a join event. Names and rooms are free text of any length.
type JoinRequest struct {
	DisplayName string `validate:"required"`
	Room        string `validate:"required"`
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
	}
	return nil
}

func ValidateJoin(req JoinRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidJoin, err)
	}
	return nil
}
