package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"telehealth-scheduler/internal/model"
	"telehealth-scheduler/internal/service"
)

// CookieName carries the signed session token.
const CookieName = "ot_embed_demo_sid"

const identityKey = "identity"

// LoadSession resolves the session cookie, if any, and stores the Identity on
// the context. Bad or stale cookies are cleared and the request continues
// anonymously.
func LoadSession(sessions *service.Sessions, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := c.Cookie(CookieName)
		if err != nil || tok == "" {
			c.Next()
			return
		}

		id, err := sessions.Resolve(c.Request.Context(), tok)
		switch {
		case err == nil:
			SetIdentity(c, id)
		case errors.Is(err, model.ErrUnauthenticated):
			ClearSessionCookie(c, secure)
		default:
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetIdentity(c *gin.Context, id model.Identity) { c.Set(identityKey, id) }

// Identity returns the logged-in caller.
func Identity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}

func EnsureLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Identity(c); !ok {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole implies EnsureLoggedIn. A logged-in caller with another role is
// sent to their dashboard.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := Identity(c)
		if !ok {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		if id.Role != role {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectLoggedIn keeps authenticated callers away from login and register.
func RedirectLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Identity(c); ok {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}
