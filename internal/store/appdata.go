package store

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"telehealth-scheduler/internal/model"
)

func (s *Store) GetAppdata(ctx context.Context, key string) (string, error) {
	q, args, err := build(s.sq.From("appdata").Prepared(true).
		Select(goqu.COALESCE(goqu.C("value"), "")).
		Where(goqu.Ex{"key": key}))
	if err != nil {
		return "", err
	}
	var v string
	err = s.pool.QueryRow(ctx, q, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", model.Storage("select appdata", err)
	}
	return v, nil
}

// SetAppdata upserts by key.
func (s *Store) SetAppdata(ctx context.Context, key, value string) error {
	q, args, err := build(s.sq.Insert("appdata").Prepared(true).
		Rows(goqu.Record{"key": key, "value": value}).
		OnConflict(goqu.DoUpdate("key", goqu.Record{
			"value":      goqu.L("EXCLUDED.value"),
			"updated_at": goqu.L("NOW()"),
		})))
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return model.Storage("upsert appdata", err)
	}
	return nil
}
