package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telehealth-scheduler/internal/middleware"
	"telehealth-scheduler/internal/model"
)

// failure codes for /?error=
var homeErrors = map[string]string{
	"missing":     "Username, password and role are required.",
	"taken":       "That username is already taken.",
	"credentials": "Invalid username or password.",
}

func backHome(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, "/?error="+code)
}

func (h *Handler) Register(c *gin.Context) {
	id, err := h.creds.Register(c.Request.Context(),
		c.PostForm("username"), c.PostForm("password"), c.PostForm("role"), c.PostForm("name"))
	switch {
	case errors.Is(err, model.ErrValidation):
		backHome(c, "missing")
		return
	case errors.Is(err, model.ErrDuplicateUsername):
		backHome(c, "taken")
		return
	case err != nil:
		_ = c.Error(fmt.Errorf("register: %w", err))
		return
	}
	log.Info().Str("user_id", id.UserID).Str("role", string(id.Role)).Msg("user registered")
	h.startSession(c, id)
}

func (h *Handler) Login(c *gin.Context) {
	id, err := h.creds.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if errors.Is(err, model.ErrInvalidCredentials) {
		backHome(c, "credentials")
		return
	}
	if err != nil {
		_ = c.Error(fmt.Errorf("login: %w", err))
		return
	}
	h.startSession(c, id)
}

func (h *Handler) startSession(c *gin.Context, id model.Identity) {
	tok, err := h.sessions.Start(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetSessionCookie(c, tok, int(h.sessions.TTL().Seconds()), h.SecureCookie)
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) Logout(c *gin.Context) {
	if tok, err := c.Cookie(middleware.CookieName); err == nil && tok != "" {
		if err := h.sessions.End(c.Request.Context(), tok); err != nil {
			log.Warn().Err(err).Msg("end session")
		}
		middleware.ClearSessionCookie(c, h.SecureCookie)
	}
	c.Redirect(http.StatusFound, "/")
}
