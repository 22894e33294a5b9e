package user

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

// ErrNotSignedIn is returned when no token or user is stored.
var ErrNotSignedIn = errors.New("not signed in")

// Session keeps the LMS bearer token and the signed in User in the portal's KeyValueStore.
type Session struct {
	store core.KeyValueStore
}

func NewSession(store core.KeyValueStore) *Session {
	return &Session{store: store}
}

func (s *Session) SignIn(ctx context.Context, usr User, token string) error {
	token = core.CleanString(token)
	if token == "" {
		return core.NewFieldValidationError("token", "this field is required")
	}
	data, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "marshalling user")
	}
	if err = s.store.Set(ctx, core.TokenKey, token); err != nil {
		return errors.Wrap(err, "storing token")
	}
	return errors.Wrap(s.store.Set(ctx, core.UserKey, string(data)), "storing user")
}

func (s *Session) SignOut(ctx context.Context) error {
	if err := s.store.Clear(ctx, core.TokenKey); err != nil {
		return errors.Wrap(err, "clearing token")
	}
	return errors.Wrap(s.store.Clear(ctx, core.UserKey), "clearing user")
}

// Token returns the stored bearer token.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.store.Get(ctx, core.TokenKey)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return "", ErrNotSignedIn
		}
		return "", errors.Wrap(err, "reading token")
	}
	if token = core.CleanString(token); token == "" {
		return "", ErrNotSignedIn
	}
	return token, nil
}

// User returns the stored signed in User.
func (s *Session) User(ctx context.Context) (User, error) {
	raw, err := s.store.Get(ctx, core.UserKey)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return User{}, ErrNotSignedIn
		}
		return User{}, errors.Wrap(err, "reading user")
	}
	var usr User
	if err = json.Unmarshal([]byte(raw), &usr); err != nil {
		return User{}, errors.Wrap(err, "unmarshalling user")
	}
	if usr.IsZero() {
		return User{}, ErrNotSignedIn
	}
	return usr, nil
}
