package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"telehealth-scheduler/internal/auth"
	"telehealth-scheduler/internal/model"
)

// Sessions turns a signed cookie token into a fresh Identity. The stored
// session and the user are both re-read on every Resolve.
type Sessions struct {
	repo   SessionRepository
	creds  *Credentials
	signer *auth.Signer
	ttl    time.Duration
	now    Clock
}

func NewSessions(repo SessionRepository, creds *Credentials, signer *auth.Signer, ttl time.Duration) *Sessions {
	return &Sessions{repo: repo, creds: creds, signer: signer, ttl: ttl, now: time.Now}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Start(ctx context.Context, id model.Identity) (string, error) {
	ss := &model.Session{
		ID:        uuid.New().String(),
		UserID:    id.UserID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, ss); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	tok, err := s.signer.MakeToken(ss.ID, ss.UserID, ss.ExpiresAt)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return tok, nil
}

// Resolve fails with model.ErrUnauthenticated for any bad, expired, or stale
// token. Storage faults come back as they are.
func (s *Sessions) Resolve(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, model.ErrUnauthenticated
	}
	claims, err := s.signer.ParseToken(token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	ss, err := s.repo.GetSession(ctx, claims.ID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Identity{}, fmt.Errorf("%w: session gone", model.ErrUnauthenticated)
	}
	if err != nil {
		return model.Identity{}, err
	}
	if ss.UserID != claims.UserID || !ss.ExpiresAt.After(s.now()) {
		return model.Identity{}, fmt.Errorf("%w: session mismatch", model.ErrUnauthenticated)
	}

	id, err := s.creds.Lookup(ctx, ss.UserID)
	if errors.Is(err, model.ErrNotFound) {
		// user deleted under a live session
		if err := s.repo.DeleteSession(ctx, ss.ID); err != nil {
			log.Warn().Err(err).Str("session_id", ss.ID).Msg("drop stale session")
		}
		return model.Identity{}, fmt.Errorf("%w: user gone", model.ErrUnauthenticated)
	}
	if err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// End is a no-op for tokens that do not parse.
func (s *Sessions) End(ctx context.Context, token string) error {
	claims, err := s.signer.ParseToken(token)
	if err != nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, claims.ID)
}
