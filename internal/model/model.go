package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

// ParseRole accepts the form values "doctor"/"patient" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor":
		return RoleDoctor, nil
	case "patient":
		return RolePatient, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// User is the stored credential record. ProfileID and Name come from the
// doctor or patient row matching Role.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Salt         string
	Role         Role
	ProfileID    string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is a User without secrets.
type Identity struct {
	UserID    string
	Username  string
	Role      Role
	ProfileID string
	Name      string
}

func (u *User) Identity() Identity {
	return Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		ProfileID: u.ProfileID,
		Name:      u.Name,
	}
}

type Meeting struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	DoctorID  string
	PatientID *string // nil = open slot

	// denormalized from joins, read only
	DoctorUserID  string
	DoctorName    string
	PatientUserID *string
	PatientName   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Meeting) Booked() bool { return m.PatientID != nil }

type MeetingFilter struct {
	DoctorID  string
	PatientID string
	OpenOnly  bool
	EndsAfter *time.Time
}

type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

const EmbedCodeKey = "embed_code"
