package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telehealth-scheduler/internal/model"
)

// RoomPlaceholder is replaced in the embed template with the meeting's room.
const RoomPlaceholder = "DEFAULT_ROOM"

// MaxDurationMinutes caps a single meeting at one day.
const MaxDurationMinutes = 24 * 60

type SchedulerOptions struct {
	// RejectPastStart refuses to create meetings whose start is before now.
	RejectPastStart bool
}

type Scheduler struct {
	meetings MeetingRepository
	embed    *EmbedCode
	opts     SchedulerOptions
	now      Clock
}

func NewScheduler(meetings MeetingRepository, embed *EmbedCode, opts SchedulerOptions) *Scheduler {
	return &Scheduler{meetings: meetings, embed: embed, opts: opts, now: time.Now}
}

// WithClock returns a copy reading time from c.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	cp := *s
	cp.now = c
	return &cp
}

func (s *Scheduler) CreateMeeting(ctx context.Context, doctorID string, start time.Time, durationMinutes int) (*model.Meeting, error) {
	if durationMinutes <= 0 || durationMinutes > MaxDurationMinutes {
		return nil, fmt.Errorf("%w: got %d minutes, want 1 to %d", model.ErrInvalidDuration, durationMinutes, MaxDurationMinutes)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start time required", model.ErrValidation)
	}
	if s.opts.RejectPastStart && start.Before(s.now()) {
		return nil, model.ErrInvalidStartTime
	}
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor required", model.ErrValidation)
	}

	m := &model.Meeting{
		StartTime: start,
		EndTime:   start.Add(time.Duration(durationMinutes) * time.Minute),
		DoctorID:  doctorID,
	}
	if err := s.meetings.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// BookMeeting claims an open meeting for the patient. The write is
// conditional, so of several concurrent callers only one wins and the rest
// get model.ErrAlreadyBooked.
func (s *Scheduler) BookMeeting(ctx context.Context, meetingID, patientID string) error {
	if patientID == "" {
		return fmt.Errorf("%w: patient required", model.ErrValidation)
	}
	now := s.now()
	ok, err := s.meetings.BookMeeting(ctx, meetingID, patientID, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// lost the write, find out why
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	switch {
	case m.Booked():
		return model.ErrAlreadyBooked
	case !m.EndTime.After(now):
		return model.ErrMeetingInPast
	}
	return fmt.Errorf("book meeting %s: %w", meetingID, model.Storage("conditional update", errors.New("no row updated")))
}

type Join struct {
	Meeting *model.Meeting
	Room    string
	Embed   string
	Ended   bool
}

func RoomName(meetingID string) string { return "meeting" + meetingID }

// JoinMeeting lets the meeting's own doctor or booked patient in. Matching is
// on user id, not on role.
func (s *Scheduler) JoinMeeting(ctx context.Context, meetingID string, caller model.Identity) (*Join, error) {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !participant(m, caller) {
		return nil, model.ErrForbidden
	}

	tmpl, err := s.embed.Get(ctx)
	if err != nil {
		return nil, err
	}
	room := RoomName(m.ID)
	return &Join{
		Meeting: m,
		Room:    room,
		Embed:   strings.ReplaceAll(tmpl, RoomPlaceholder, room),
		Ended:   m.EndTime.Before(s.now()),
	}, nil
}

func participant(m *model.Meeting, caller model.Identity) bool {
	switch caller.Role {
	case model.RoleDoctor:
		return m.DoctorUserID == caller.UserID
	case model.RolePatient:
		return m.PatientUserID != nil && *m.PatientUserID == caller.UserID
	}
	return false
}

func (s *Scheduler) DoctorDashboard(ctx context.Context, doctorID string) (Buckets, error) {
	ms, err := s.meetings.ListMeetings(ctx, model.MeetingFilter{DoctorID: doctorID})
	if err != nil {
		return Buckets{}, err
	}
	return Classify(ms, s.now()), nil
}

func (s *Scheduler) PatientDashboard(ctx context.Context, patientID string) (Buckets, error) {
	ms, err := s.meetings.ListMeetings(ctx, model.MeetingFilter{PatientID: patientID})
	if err != nil {
		return Buckets{}, err
	}
	return Classify(ms, s.now()), nil
}

// OpenSlots lists unbooked meetings that have not ended.
func (s *Scheduler) OpenSlots(ctx context.Context) (Buckets, error) {
	now := s.now()
	ms, err := s.meetings.ListMeetings(ctx, model.MeetingFilter{OpenOnly: true, EndsAfter: &now})
	if err != nil {
		return Buckets{}, err
	}
	return Classify(ms, now), nil
}

// Dashboard picks the listing for the caller's role.
func (s *Scheduler) Dashboard(ctx context.Context, caller model.Identity) (Buckets, error) {
	switch caller.Role {
	case model.RoleDoctor:
		return s.DoctorDashboard(ctx, caller.ProfileID)
	case model.RolePatient:
		return s.PatientDashboard(ctx, caller.ProfileID)
	}
	return Buckets{}, fmt.Errorf("%w: role %q", model.ErrForbidden, caller.Role)
}
