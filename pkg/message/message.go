package message

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a message carries an unrecognized role.
var ErrUnknownRole = errors.New("message: unknown role")

// Message is one entry in a conversation: a role plus an ordered sequence
// of parts. Messages are immutable once appended to a history.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserText creates a user message holding a single text part.
func NewUserText(content string) Message {
	return Message{Role: RoleUser, Parts: []Part{NewTextPart(content)}}
}

// Validate checks the message role and every part.
func (m Message) Validate() error {
	if !ValidRole(m.Role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, m.Role)
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// Text concatenates the content of all text parts in arrival order.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Content)
		}
	}
	return b.String()
}

// ValidateHistory checks every message in a history, identifying the
// offending message on failure.
func ValidateHistory(msgs []Message) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}
