package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"telehealth-scheduler/internal/middleware"
	"telehealth-scheduler/internal/model"
)

// accepted start_date layouts, zone-less ones read in the handler's location
var startLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: start date required", model.ErrValidation)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised start date %q", model.ErrValidation, raw)
}

func parseDuration(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: duration must be a number of minutes", model.ErrValidation)
	}
	return n, nil
}

func (h *Handler) Dashboard(c *gin.Context) {
	id, _ := middleware.Identity(c)
	b, err := h.sched.Dashboard(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(fmt.Errorf("dashboard: %w", err))
		return
	}
	page := "dashboard_patient.html"
	if id.Role == model.RoleDoctor {
		page = "dashboard_doctor.html"
	}
	h.render(c, page, gin.H{"title": "Dashboard", "meetings": b})
}

func (h *Handler) CreateMeetingForm(c *gin.Context) {
	h.render(c, "meetings_create.html", gin.H{"title": "New slot"})
}

func (h *Handler) CreateMeeting(c *gin.Context) {
	id, _ := middleware.Identity(c)
	start, err := parseStart(c.PostForm("start_date"), h.Location)
	if err != nil {
		_ = c.Error(err)
		return
	}
	minutes, err := parseDuration(c.PostForm("duration"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := h.sched.CreateMeeting(c.Request.Context(), id.ProfileID, start, minutes); err != nil {
		_ = c.Error(fmt.Errorf("create meeting: %w", err))
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) BookMeetingForm(c *gin.Context) {
	slots, err := h.sched.OpenSlots(c.Request.Context())
	if err != nil {
		_ = c.Error(fmt.Errorf("open slots: %w", err))
		return
	}
	h.render(c, "meetings_book.html", gin.H{"title": "Book", "slots": slots})
}

func (h *Handler) BookMeeting(c *gin.Context) {
	id, _ := middleware.Identity(c)
	meetingID := strings.TrimSpace(c.PostForm("meeting_id"))
	if meetingID == "" {
		_ = c.Error(fmt.Errorf("%w: pick a meeting", model.ErrValidation))
		return
	}
	if err := h.sched.BookMeeting(c.Request.Context(), meetingID, id.ProfileID); err != nil {
		_ = c.Error(fmt.Errorf("book meeting: %w", err))
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) JoinMeeting(c *gin.Context) {
	id, _ := middleware.Identity(c)
	j, err := h.sched.JoinMeeting(c.Request.Context(), c.Param("id"), id)
	if errors.Is(err, model.ErrForbidden) {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	if err != nil {
		_ = c.Error(fmt.Errorf("join meeting: %w", err))
		return
	}
	h.render(c, "meeting.html", gin.H{
		"title": "Meeting",
		"join":  j,
		// operator-supplied widget markup
		"embed": template.HTML(j.Embed),
	})
}
