// Package identity models who is talking to the backend: a registered user
// or an anonymous participant holding a generated handle.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindUser      Kind = "user"
	KindAnonymous Kind = "anon"
)

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is either a registered user (by id) or an anonymous handle.
// The zero value is "nobody" and is rejected by every service.
type Identity struct {
	kind   Kind
	userID uuid.UUID
	handle string
}

func User(id uuid.UUID) Identity {
	return Identity{kind: KindUser, userID: id}
}

// Anonymous wraps an existing handle, e.g. one echoed back by a client.
func Anonymous(handle string) Identity {
	return Identity{kind: KindAnonymous, handle: handle}
}

// NewAnonymous mints a fresh anonymous handle.
func NewAnonymous() Identity {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Anonymous("anon_" + raw[:12])
}

// Parse reverses Key.
func Parse(key string) (Identity, error) {
	kind, value, ok := strings.Cut(key, ":")
	if !ok || value == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
	}
	switch Kind(kind) {
	case KindUser:
		id, err := uuid.Parse(value)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return User(id), nil
	case KindAnonymous:
		return Anonymous(value), nil
	default:
		return Identity{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidIdentity, kind)
	}
}

func (i Identity) Kind() Kind { return i.kind }

func (i Identity) IsZero() bool { return i.kind == "" }

func (i Identity) IsAnonymous() bool { return i.kind == KindAnonymous }

// UserID returns the registered user id, if any.
func (i Identity) UserID() (uuid.UUID, bool) {
	if i.kind != KindUser {
		return uuid.Nil, false
	}
	return i.userID, true
}

// UserIDPtr is a convenience for nullable user_id columns.
func (i Identity) UserIDPtr() *uuid.UUID {
	if id, ok := i.UserID(); ok {
		return &id
	}
	return nil
}

func (i Identity) Handle() string { return i.handle }

// Key is the stable string form used as a storage and routing key.
func (i Identity) Key() string {
	switch i.kind {
	case KindUser:
		return string(KindUser) + ":" + i.userID.String()
	case KindAnonymous:
		return string(KindAnonymous) + ":" + i.handle
	default:
		return ""
	}
}

func (i Identity) String() string { return i.Key() }

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.Key()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*i = Identity{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
