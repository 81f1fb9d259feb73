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

func (s *Store) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	rec := goqu.Record{
		"id":         m.ID,
		"start_time": m.StartTime,
		"end_time":   m.EndTime,
		"doctor_id":  m.DoctorID,
	}
	if m.PatientID != nil {
		rec["patient_id"] = *m.PatientID
	}
	q, args, err := build(s.sq.Insert("meetings").Prepared(true).Rows(rec).
		Returning("created_at", "updated_at"))
	if err != nil {
		return err
	}
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		return model.Storage("insert meeting", err)
	}
	return nil
}

func (s *Store) meetings() *goqu.SelectDataset {
	return s.sq.From(goqu.T("meetings").As("m")).Prepared(true).
		Join(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("m.doctor_id")))).
		LeftJoin(goqu.T("patients").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("m.patient_id")))).
		Select(
			goqu.I("m.id"), goqu.I("m.start_time"), goqu.I("m.end_time"),
			goqu.I("m.doctor_id"), goqu.I("m.patient_id"),
			goqu.I("d.user_id"), goqu.I("d.name"),
			goqu.I("p.user_id"), goqu.I("p.name"),
			goqu.I("m.created_at"), goqu.I("m.updated_at"),
		)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(r rowScanner) (*model.Meeting, error) {
	m := &model.Meeting{}
	err := r.Scan(
		&m.ID, &m.StartTime, &m.EndTime,
		&m.DoctorID, &m.PatientID,
		&m.DoctorUserID, &m.DoctorName,
		&m.PatientUserID, &m.PatientName,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrNotFound
	}
	q, args, err := build(s.meetings().Where(goqu.Ex{"m.id": id}))
	if err != nil {
		return nil, err
	}
	m, err := scanMeeting(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Storage("select meeting", err)
	}
	return m, nil
}

// ListMeetings orders by start_time; rows with equal start keep creation order.
func (s *Store) ListMeetings(ctx context.Context, f model.MeetingFilter) ([]model.Meeting, error) {
	ds := s.meetings()
	if f.DoctorID != "" {
		ds = ds.Where(goqu.Ex{"m.doctor_id": f.DoctorID})
	}
	if f.PatientID != "" {
		ds = ds.Where(goqu.Ex{"m.patient_id": f.PatientID})
	}
	if f.OpenOnly {
		ds = ds.Where(goqu.Ex{"m.patient_id": nil})
	}
	if f.EndsAfter != nil {
		ds = ds.Where(goqu.I("m.end_time").Gt(*f.EndsAfter))
	}
	ds = ds.Order(goqu.I("m.start_time").Asc(), goqu.I("m.created_at").Asc(), goqu.I("m.id").Asc())

	q, args, err := build(ds)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, model.Storage("list meetings", err)
	}
	defer rows.Close()

	var out []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, model.Storage("scan meeting", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Storage("list meetings", err)
	}
	return out, nil
}

// BookMeeting claims the slot only if it is still open and not over at write
// time. Reports whether this call won.
func (s *Store) BookMeeting(ctx context.Context, id, patientID string, now time.Time) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	q, args, err := build(s.sq.Update("meetings").Prepared(true).
		Set(goqu.Record{"patient_id": patientID, "updated_at": now}).
		Where(
			goqu.Ex{"id": id, "patient_id": nil},
			goqu.C("end_time").Gt(now),
		))
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, model.Storage("book meeting", err)
	}
	return tag.RowsAffected() == 1, nil
}
