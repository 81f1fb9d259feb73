// Package storetest provides an in-memory implementation of the service
// repositories for tests. It is not used by the server.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"telehealth-scheduler/internal/model"
)

type profile struct {
	id     string
	userID string
	name   string
	role   model.Role
}

type Memory struct {
	mu       sync.Mutex
	users    map[string]model.User
	byName   map[string]string
	profiles map[string]profile // by profile id
	meetings map[string]model.Meeting
	order    []string // meeting insertion order
	appdata  map[string]string
	sessions map[string]model.Session

	// FailNext makes the next repository call return this error.
	FailNext error
	// FailDeleteSession makes every DeleteSession return this error.
	FailDeleteSession error
}

func New() *Memory {
	return &Memory{
		users:    map[string]model.User{},
		byName:   map[string]string{},
		profiles: map[string]profile{},
		meetings: map[string]model.Meeting{},
		appdata:  map[string]string{},
		sessions: map[string]model.Session{},
	}
}

func (m *Memory) fail() error {
	if err := m.FailNext; err != nil {
		m.FailNext = nil
		return model.Storage("memory", err)
	}
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u *model.User, profileName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	if !u.Role.Valid() {
		return "", model.ErrValidation
	}
	if _, ok := m.byName[u.Username]; ok {
		return "", model.ErrDuplicateUsername
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	pid := uuid.New().String()
	now := time.Now()
	u.ProfileID, u.Name, u.CreatedAt, u.UpdatedAt = pid, profileName, now, now

	m.users[u.ID] = *u
	m.byName[u.Username] = u.ID
	m.profiles[pid] = profile{id: pid, userID: u.ID, name: profileName, role: u.Role}
	return pid, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	id, ok := m.byName[username]
	if !ok {
		return nil, model.ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &u, nil
}

// DeleteUser removes the user and profile, leaving sessions behind like a
// cascade that has not run yet.
func (m *Memory) DeleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return
	}
	delete(m.users, id)
	delete(m.byName, u.Username)
	delete(m.profiles, u.ProfileID)
}

// Counts returns the number of users and profiles stored.
func (m *Memory) Counts() (users, profiles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.profiles)
}

func (m *Memory) CreateMeeting(_ context.Context, mt *model.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	d, ok := m.profiles[mt.DoctorID]
	if !ok || d.role != model.RoleDoctor {
		return model.Storage("insert meeting", errFK)
	}
	if !mt.EndTime.After(mt.StartTime) {
		return model.Storage("insert meeting", errCheck)
	}
	if mt.ID == "" {
		mt.ID = uuid.New().String()
	}
	now := time.Now()
	mt.CreatedAt, mt.UpdatedAt = now, now
	m.meetings[mt.ID] = *mt
	m.order = append(m.order, mt.ID)
	return nil
}

func (m *Memory) hydrate(mt model.Meeting) model.Meeting {
	if d, ok := m.profiles[mt.DoctorID]; ok {
		mt.DoctorUserID, mt.DoctorName = d.userID, d.name
	}
	mt.PatientUserID, mt.PatientName = nil, nil
	if mt.PatientID != nil {
		if p, ok := m.profiles[*mt.PatientID]; ok {
			uid, name := p.userID, p.name
			mt.PatientUserID, mt.PatientName = &uid, &name
		}
	}
	return mt
}

func (m *Memory) GetMeeting(_ context.Context, id string) (*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	mt, ok := m.meetings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	mt = m.hydrate(mt)
	return &mt, nil
}

func (m *Memory) ListMeetings(_ context.Context, f model.MeetingFilter) ([]model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []model.Meeting
	for _, id := range m.order {
		mt := m.meetings[id]
		if f.DoctorID != "" && mt.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != "" && (mt.PatientID == nil || *mt.PatientID != f.PatientID) {
			continue
		}
		if f.OpenOnly && mt.PatientID != nil {
			continue
		}
		if f.EndsAfter != nil && !mt.EndTime.After(*f.EndsAfter) {
			continue
		}
		out = append(out, m.hydrate(mt))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *Memory) BookMeeting(_ context.Context, id, patientID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	mt, ok := m.meetings[id]
	if !ok || mt.PatientID != nil || !mt.EndTime.After(now) {
		return false, nil
	}
	if p, ok := m.profiles[patientID]; !ok || p.role != model.RolePatient {
		return false, model.Storage("book meeting", errFK)
	}
	pid := patientID
	mt.PatientID = &pid
	mt.UpdatedAt = now
	m.meetings[id] = mt
	return true, nil
}

func (m *Memory) GetAppdata(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	v, ok := m.appdata[key]
	if !ok {
		return "", model.ErrNotFound
	}
	return v, nil
}

func (m *Memory) SetAppdata(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.appdata[key] = value
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, model.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.FailDeleteSession != nil {
		return model.Storage("memory", m.FailDeleteSession)
	}
	delete(m.sessions, id)
	return nil
}

// SessionCount is the number of stored sessions, expired ones included.
func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memErr string

func (e memErr) Error() string { return string(e) }

const (
	errFK    memErr = "foreign key violation"
	errCheck memErr = "check constraint violation"
)
