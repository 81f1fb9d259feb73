package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telehealth-scheduler/internal/model"
)

// unlocked sends everyone home once the embed code is locked.
func (h *Handler) unlocked(c *gin.Context) {
	locked, err := h.embed.Locked(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	if locked {
		c.Redirect(http.StatusFound, "/")
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) SetupForm(c *gin.Context) {
	code, err := h.embed.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.render(c, "setup.html", gin.H{"title": "Setup", "data": code})
}

func (h *Handler) SaveSetup(c *gin.Context) {
	code, ok := c.GetPostForm("embed_code_value")
	if !ok {
		c.Redirect(http.StatusFound, "/setup")
		return
	}
	err := h.embed.Set(c.Request.Context(), code)
	if errors.Is(err, model.ErrSetupLocked) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	log.Info().Int("bytes", len(code)).Msg("embed code updated")
	c.Redirect(http.StatusFound, "/")
}
