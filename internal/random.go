package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidSessionID is returned for text that String could not have produced.
var ErrInvalidSessionID = errors.New("invalid session id")

// SessionID is a 128-bit random identifier naming one revocation record.
type SessionID [16]byte

// sessionIDTextLen is the length of the unpadded base64url form.
var sessionIDTextLen = base64.RawURLEncoding.EncodedLen(len(SessionID{}))

// NewSessionID draws a session id from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	if _, err := rand.Read(sid[:]); err != nil {
		return SessionID{}, fmt.Errorf("read session id entropy: %w", err)
	}
	return sid, nil
}

func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID accepts only the canonical form produced by String, so every
// id has exactly one spelling as a Redis key suffix.
func ParseSessionID(text string) (SessionID, error) {
	var sid SessionID
	if len(text) != sessionIDTextLen {
		return sid, fmt.Errorf("%w: length %d", ErrInvalidSessionID, len(text))
	}
	n, err := base64.RawURLEncoding.Strict().Decode(sid[:], []byte(text))
	if err != nil || n != len(sid) {
		return SessionID{}, ErrInvalidSessionID
	}
	return sid, nil
}

// ValidSessionID reports whether s is a well-formed session id. Ids that fail
// this check are never looked up in the store.
func ValidSessionID(s string) bool {
	_, err := ParseSessionID(s)
	return err == nil
}
