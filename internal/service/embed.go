package service

import (
	"context"
	"errors"
	"strings"

	"telehealth-scheduler/internal/model"
)

// EmbedCode is the single video embed template stored in appdata.
type EmbedCode struct {
	repo        AppdataRepository
	lockEnabled bool
}

func NewEmbedCode(repo AppdataRepository, lockEnabled bool) *EmbedCode {
	return &EmbedCode{repo: repo, lockEnabled: lockEnabled}
}

// Get returns "" when nothing is stored.
func (e *EmbedCode) Get(ctx context.Context) (string, error) {
	v, err := e.repo.GetAppdata(ctx, model.EmbedCodeKey)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (e *EmbedCode) Set(ctx context.Context, code string) error {
	locked, err := e.Locked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return model.ErrSetupLocked
	}
	return e.repo.SetAppdata(ctx, model.EmbedCodeKey, strings.TrimSpace(code))
}

// Locked is read from storage each call so a cleared value unlocks again.
func (e *EmbedCode) Locked(ctx context.Context) (bool, error) {
	if !e.lockEnabled {
		return false, nil
	}
	v, err := e.Get(ctx)
	if err != nil {
		return false, err
	}
	return v != "", nil
}
