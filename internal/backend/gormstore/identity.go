package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/slok/fieldwork/internal/model"
)

// Register registers a new identity with a bcrypt hashed password.
func (s *Store) Register(ctx context.Context, uid, email, password string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if uid == "" || email == "" || password == "" {
		return nil, fmt.Errorf("uid, email and password are required: %w", model.ErrNotValid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Create(&credentialRow{UID: uid, Email: email, PasswordHash: hash}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("identity %s: %w", email, model.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("could not create identity: %w", err)
	}

	return &model.Identity{UID: uid, Email: email}, nil
}

// SignIn authenticates an identity.
func (s *Store) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	var row credentialRow
	err := s.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("unknown user: %w", model.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("could not get identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(row.PasswordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("wrong password: %w", model.ErrUnauthenticated)
	}

	return &model.Identity{UID: row.UID, Email: row.Email}, nil
}

// SignOut signs out an identity. Sessions are not tracked on the server.
func (s *Store) SignOut(ctx context.Context, uid string) error {
	s.logger.WithCtxValues(ctx).Debugf("Identity %s signed out", uid)
	return nil
}
