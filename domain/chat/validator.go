package chat

import (
	"chat-relay/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Pointers distinguish an absent field from an empty string.
type messageInput struct {
	Text *string `json:"text" validate:"required"`
	Room *string `json:"room" validate:"required"`
}

type typingInput struct {
	Room *string `json:"room" validate:"required"`
}

// Validator schema-checks raw inbound payloads.
// It never panics: every failure is returned as an error value.
type Validator struct {
	validate         *validator.Validate
	maxContentLength int
}

// NewValidator builds a Validator. A maxContentLength <= 0 disables the text length check.
func NewValidator(maxContentLength int) *Validator {
	return &Validator{validate: validator.New(), maxContentLength: maxContentLength}
}

func (v *Validator) Validate(kind EventType, raw json.RawMessage) (Inbound, error) {
	switch kind {
	case Message:
		var in messageInput
		if err := v.decode(raw, &in); err != nil {
			return Inbound{}, err
		}
		if v.maxContentLength > 0 {
			if err := v.validate.Var(*in.Text, fmt.Sprintf("max=%d", v.maxContentLength)); err != nil {
				return Inbound{}, fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
			}
		}
		return Inbound{Kind: kind, Text: *in.Text, Room: *in.Room}, nil
	case StartTyping, StopTyping:
		var in typingInput
		if err := v.decode(raw, &in); err != nil {
			return Inbound{}, err
		}
		return Inbound{Kind: kind, Room: *in.Room}, nil
	default:
		return Inbound{}, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, kind)
	}
}

func (v *Validator) decode(raw json.RawMessage, in any) error {
	if err := json.Unmarshal(raw, in); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
	}
	if err := v.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
	}
	return nil
}
