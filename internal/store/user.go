package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telehealth-scheduler/internal/model"
)

func profileTable(r model.Role) (string, error) {
	switch r {
	case model.RoleDoctor:
		return "doctors", nil
	case model.RolePatient:
		return "patients", nil
	}
	return "", fmt.Errorf("%w: role %q", model.ErrValidation, r)
}

// CreateUser inserts the user and its doctor or patient profile in one
// transaction and returns the profile id.
func (s *Store) CreateUser(ctx context.Context, u *model.User, profileName string) (string, error) {
	table, err := profileTable(u.Role)
	if err != nil {
		return "", err
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	profileID := uuid.New().String()

	insUser, userArgs, err := build(s.sq.Insert("users").Prepared(true).Rows(goqu.Record{
		"id":            u.ID,
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"salt":          u.Salt,
		"role":          string(u.Role),
	}))
	if err != nil {
		return "", err
	}
	insProfile, profileArgs, err := build(s.sq.Insert(table).Prepared(true).Rows(goqu.Record{
		"id":      profileID,
		"user_id": u.ID,
		"name":    profileName,
	}))
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", model.Storage("begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insUser, userArgs...); err != nil {
		if isUniqueViolation(err) {
			return "", model.ErrDuplicateUsername
		}
		return "", model.Storage("insert user", err)
	}
	if _, err := tx.Exec(ctx, insProfile, profileArgs...); err != nil {
		return "", model.Storage("insert "+table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return "", model.ErrDuplicateUsername
		}
		return "", model.Storage("commit", err)
	}

	u.ProfileID = profileID
	u.Name = profileName
	return profileID, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.userWhere(ctx, goqu.Ex{"u.username": username})
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}
	return s.userWhere(ctx, goqu.Ex{"u.id": id})
}

// the profile lives in exactly one of the two tables
func (s *Store) userWhere(ctx context.Context, where goqu.Ex) (*model.User, error) {
	q, args, err := build(s.sq.From(goqu.T("users").As("u")).Prepared(true).
		LeftJoin(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.user_id").Eq(goqu.I("u.id")))).
		LeftJoin(goqu.T("patients").As("p"), goqu.On(goqu.I("p.user_id").Eq(goqu.I("u.id")))).
		Select(
			goqu.I("u.id"), goqu.I("u.username"), goqu.I("u.password_hash"), goqu.I("u.salt"), goqu.I("u.role"),
			goqu.COALESCE(goqu.I("d.id"), goqu.I("p.id")).As("profile_id"),
			goqu.COALESCE(goqu.I("d.name"), goqu.I("p.name"), "").As("name"),
			goqu.I("u.created_at"), goqu.I("u.updated_at"),
		).
		Where(where))
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	var role string
	var profileID *string
	err = s.pool.QueryRow(ctx, q, args...).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &role,
		&profileID, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Storage("select user", err)
	}
	u.Role = model.Role(role)
	if profileID == nil {
		// a user without its profile is as good as absent
		return nil, model.ErrNotFound
	}
	u.ProfileID = *profileID
	return u, nil
}
