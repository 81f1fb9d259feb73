package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"telehealth-scheduler/internal/middleware"
	"telehealth-scheduler/internal/model"
	"telehealth-scheduler/internal/service"
)

type Handler struct {
	creds    *service.Credentials
	sessions *service.Sessions
	sched    *service.Scheduler
	embed    *service.EmbedCode
	limiter  *middleware.RateLimiter

	// SecureCookie marks the session cookie Secure. Off for plain-http dev.
	SecureCookie bool
	// Location is used for start times entered without a zone.
	Location *time.Location
}

// New wires the services into a Handler. limiter may be nil to disable rate
// limiting on the credential routes.
func New(creds *service.Credentials, sessions *service.Sessions, sched *service.Scheduler, embed *service.EmbedCode, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		creds:    creds,
		sessions: sessions,
		sched:    sched,
		embed:    embed,
		limiter:  limiter,
		Location: time.Local,
	}
}

// Routes mounts every page on r. r must already have the view templates set.
func (h *Handler) Routes(r *gin.Engine) {
	r.Use(middleware.ErrorPage("error.html"), middleware.LoadSession(h.sessions, h.SecureCookie))
	r.NoRoute(func(c *gin.Context) { _ = c.Error(model.ErrNotFound) })

	r.GET("/", h.Home)

	limit := func(c *gin.Context) { c.Next() }
	if h.limiter != nil {
		limit = middleware.RateLimit(h.limiter)
	}
	user := r.Group("/user")
	{
		user.POST("/register", middleware.RedirectLoggedIn(), limit, h.Register)
		user.POST("/login", middleware.RedirectLoggedIn(), limit, h.Login)
		user.GET("/logout", h.Logout)
	}

	r.GET("/dashboard", middleware.EnsureLoggedIn(), h.Dashboard)

	meetings := r.Group("/meetings")
	{
		doctor := middleware.RequireRole(model.RoleDoctor)
		patient := middleware.RequireRole(model.RolePatient)
		meetings.GET("/create", doctor, h.CreateMeetingForm)
		meetings.POST("/create", doctor, h.CreateMeeting)
		meetings.GET("/book", patient, h.BookMeetingForm)
		meetings.POST("/book", patient, h.BookMeeting)
		meetings.GET("/join/:id", middleware.EnsureLoggedIn(), h.JoinMeeting)
	}

	setup := r.Group("/setup", h.unlocked)
	{
		setup.GET("", h.SetupForm)
		setup.POST("", h.SaveSetup)
	}
}

// render adds the values every page needs.
func (h *Handler) render(c *gin.Context, name string, data gin.H) {
	locked, err := h.embed.Locked(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	if id, ok := middleware.Identity(c); ok {
		data["user"] = id
	}
	data["lockSetup"] = locked
	c.HTML(http.StatusOK, name, data)
}

func (h *Handler) Home(c *gin.Context) {
	code, err := h.embed.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.render(c, "home.html", gin.H{
		"embedConfigured": code != "",
		"error":           homeErrors[c.Query("error")],
	})
}
