// Package service holds the domain operations behind the HTTP handlers:
// credentials, sessions, meeting scheduling and the embed code setting.
// Persistence comes in through the repository interfaces below.
package service

import (
	"context"
	"time"

	"telehealth-scheduler/internal/model"
)

type UserRepository interface {
	// CreateUser stores the user and its role profile atomically and returns
	// the profile id. Duplicate usernames fail with model.ErrDuplicateUsername.
	CreateUser(ctx context.Context, u *model.User, profileName string) (string, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
}

type MeetingRepository interface {
	CreateMeeting(ctx context.Context, m *model.Meeting) error
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	ListMeetings(ctx context.Context, f model.MeetingFilter) ([]model.Meeting, error)
	// BookMeeting sets the patient only if the meeting is still open and ends
	// after now. It reports whether the write happened.
	BookMeeting(ctx context.Context, id, patientID string, now time.Time) (bool, error)
}

type AppdataRepository interface {
	GetAppdata(ctx context.Context, key string) (string, error)
	SetAppdata(ctx context.Context, key, value string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Clock is swapped in tests.
type Clock func() time.Time
