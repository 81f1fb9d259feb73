package store

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telehealth-scheduler/internal/model"
)

func (s *Store) CreateSession(ctx context.Context, ss *model.Session) error {
	if ss.ID == "" {
		ss.ID = uuid.New().String()
	}
	q, args, err := build(s.sq.Insert("sessions").Prepared(true).Rows(goqu.Record{
		"id":         ss.ID,
		"user_id":    ss.UserID,
		"expires_at": ss.ExpiresAt,
	}).Returning("created_at"))
	if err != nil {
		return err
	}
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&ss.CreatedAt); err != nil {
		return model.Storage("insert session", err)
	}
	return nil
}

// GetSession treats expired rows as absent.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}
	q, args, err := build(s.sq.From("sessions").Prepared(true).
		Select("id", "user_id", "expires_at", "created_at").
		Where(goqu.Ex{"id": id}, goqu.C("expires_at").Gt(time.Now())))
	if err != nil {
		return nil, err
	}
	ss := &model.Session{}
	err = s.pool.QueryRow(ctx, q, args...).Scan(&ss.ID, &ss.UserID, &ss.ExpiresAt, &ss.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Storage("select session", err)
	}
	return ss, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	q, args, err := build(s.sq.Delete("sessions").Prepared(true).Where(goqu.Ex{"id": id}))
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return model.Storage("delete session", err)
	}
	return nil
}

// PurgeSessions drops expired rows.
func (s *Store) PurgeSessions(ctx context.Context) (int64, error) {
	q, args, err := build(s.sq.Delete("sessions").Prepared(true).
		Where(goqu.C("expires_at").Lte(time.Now())))
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, model.Storage("purge sessions", err)
	}
	return tag.RowsAffected(), nil
}
