package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telehealth-scheduler/internal/model"
)

// StatusFor maps a domain error to the status and message shown to the user.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case model.IsPolicy(err):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "Something went wrong"
}

// ErrorPage renders the error view for the last error a handler pushed with
// c.Error, unless the handler already wrote a response.
func ErrorPage(view string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, msg := StatusFor(last.Err)
		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		}
		ev.Err(last.Err).Str("path", c.Request.URL.Path).Int("status", status).Msg("request failed")
		c.HTML(status, view, gin.H{"message": msg, "status": status})
	}
}
