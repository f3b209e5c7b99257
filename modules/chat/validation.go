package chat

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// Validation constants
const (
	MaxRoomNameLength = 90
	MaxMessageLength  = 5000
)

// Validation errors
var (
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrMessageEmpty    = errors.New("message content cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
	ErrDataURLEmpty    = errors.New("file payload cannot be empty")
)

// Room names end up in channel identifiers, so they are limited to a safe alphabet.
var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateRoomName validates a room name.
func ValidateRoomName(name string) error {
	if name == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !roomNamePattern.MatchString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateMessage validates a message content against maxLength bytes.
// A non-positive maxLength falls back to MaxMessageLength.
func ValidateMessage(content string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = MaxMessageLength
	}
	if content == "" {
		return ErrMessageEmpty
	}
	if len(content) > maxLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}

// ValidateDataURL validates a shared file payload.
func ValidateDataURL(dataURL string) error {
	if dataURL == "" {
		return ErrDataURLEmpty
	}
	return nil
}
