package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin seeds the admin credential on first boot. An existing
// credential is never overwritten.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.store.GetAdmin(ctx)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.SaveAdmin(ctx, AdminCredential{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("admin credential seeded")
	return nil
}

// Authenticate checks a username/password pair against the stored credential.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	cred, err := s.store.GetAdmin(ctx)
	if err != nil {
		if IsNotFound(err) {
			return ErrUnauthorized
		}
		return err
	}
	if cred.Username != username {
		return ErrUnauthorized
	}
	err = bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrUnauthorized
	}
	return err
}
