package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telehealth-scheduler/internal/auth"
	"telehealth-scheduler/internal/model"
)

type Credentials struct {
	users UserRepository
}

func NewCredentials(users UserRepository) *Credentials {
	return &Credentials{users: users}
}

// Register creates a user and its doctor or patient profile.
func (c *Credentials) Register(ctx context.Context, username, password, role, profileName string) (model.Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	profileName = strings.TrimSpace(profileName)
	if username == "" || password == "" {
		return model.Identity{}, fmt.Errorf("%w: username and password required", model.ErrValidation)
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return model.Identity{}, err
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return model.Identity{}, fmt.Errorf("salt: %w", err)
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return model.Identity{}, fmt.Errorf("hash: %w", err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         r,
	}
	if _, err := c.users.CreateUser(ctx, u, profileName); err != nil {
		return model.Identity{}, err
	}
	return u.Identity(), nil
}

// Authenticate never tells the caller whether the username exists: both
// failures match model.ErrInvalidCredentials.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (model.Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return model.Identity{}, model.ErrInvalidCredentials
	}

	u, err := c.users.UserByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		auth.BurnCompare(password)
		return model.Identity{}, fmt.Errorf("%w: %w", model.ErrInvalidCredentials, err)
	}
	if err != nil {
		return model.Identity{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, u.Salt, password) {
		return model.Identity{}, model.ErrInvalidCredentials
	}
	return u.Identity(), nil
}

// Lookup reloads a user by id, used by the session gate on every request.
func (c *Credentials) Lookup(ctx context.Context, userID string) (model.Identity, error) {
	u, err := c.users.UserByID(ctx, userID)
	if err != nil {
		return model.Identity{}, err
	}
	return u.Identity(), nil
}
