package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-scheduler/internal/auth"
	"telehealth-scheduler/internal/handler"
	"telehealth-scheduler/internal/middleware"
	"telehealth-scheduler/internal/model"
	"telehealth-scheduler/internal/service"
	"telehealth-scheduler/internal/storetest"
	"telehealth-scheduler/internal/view"
)

type app struct {
	mem *storetest.Memory
	r   *gin.Engine
}

func newApp(t *testing.T, lockSetup bool, limiter *middleware.RateLimiter) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := storetest.New()
	signer, err := auth.NewSigner()
	require.NoError(t, err)
	creds := service.NewCredentials(mem)
	embed := service.NewEmbedCode(mem, lockSetup)
	h := handler.New(
		creds,
		service.NewSessions(mem, creds, signer, time.Hour),
		service.NewScheduler(mem, embed, service.SchedulerOptions{RejectPastStart: true}),
		embed,
		limiter,
	)

	tmpl, err := view.Load()
	require.NoError(t, err)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	h.Routes(r)
	return &app{mem: mem, r: r}
}

// browser keeps the session cookie between requests.
type browser struct {
	a   *app
	sid string
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if b.sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: b.sid})
	}
	w := httptest.NewRecorder()
	b.a.r.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name != middleware.CookieName {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			b.sid = ""
		} else {
			b.sid = c.Value
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, path, form)
}

func (a *app) signUp(t *testing.T, username, role string) *browser {
	t.Helper()
	b := &browser{a: a}
	w := b.post("/user/register", url.Values{
		"username": {username}, "password": {"pw"}, "role": {role}, "name": {strings.ToUpper(username)},
	})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	require.NotEmpty(t, b.sid)
	return b
}

func (a *app) onlyMeeting(t *testing.T) model.Meeting {
	t.Helper()
	ms, err := a.mem.ListMeetings(context.Background(), model.MeetingFilter{})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	return ms[0]
}

func soon() string { return time.Now().Add(time.Hour).Format("2006-01-02 15:04") }

func TestHomeAnonymous(t *testing.T) {
	a := newApp(t, false, nil)
	w := (&browser{a: a}).get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/user/login"`)
	assert.Contains(t, w.Body.String(), "No video embed code")
}

func TestRegisterAndDashboard(t *testing.T) {
	a := newApp(t, false, nil)
	doc := a.signUp(t, "doc", "doctor")

	w := doc.get("/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your schedule")

	pat := a.signUp(t, "pat", "patient")
	w = pat.get("/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your appointments")
}

func TestRegisterFailuresRedirectHome(t *testing.T) {
	a := newApp(t, false, nil)
	a.signUp(t, "taken", "patient")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing password", url.Values{"username": {"x"}, "role": {"doctor"}}, "/?error=missing"},
		{"bad role", url.Values{"username": {"x"}, "password": {"pw"}, "role": {"nurse"}}, "/?error=missing"},
		{"duplicate", url.Values{"username": {"taken"}, "password": {"pw"}, "role": {"doctor"}}, "/?error=taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &browser{a: a}
			w := b.post("/user/register", tt.form)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Location"))
			assert.Empty(t, b.sid)
		})
	}

	w := (&browser{a: a}).get("/?error=taken")
	assert.Contains(t, w.Body.String(), "already taken")
}

func TestLogin(t *testing.T) {
	a := newApp(t, false, nil)
	a.signUp(t, "erin", "doctor")

	b := &browser{a: a}
	w := b.post("/user/login", url.Values{"username": {"erin"}, "password": {"nope"}})
	assert.Equal(t, "/?error=credentials", w.Header().Get("Location"))
	w = b.post("/user/login", url.Values{"username": {"ghost"}, "password": {"pw"}})
	assert.Equal(t, "/?error=credentials", w.Header().Get("Location"))
	assert.Empty(t, b.sid)

	w = b.post("/user/login", url.Values{"username": {"erin"}, "password": {"pw"}})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.NotEmpty(t, b.sid)

	// already logged in
	w = b.post("/user/login", url.Values{"username": {"erin"}, "password": {"pw"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	a := newApp(t, false, nil)
	b := a.signUp(t, "lou", "patient")
	sid := b.sid

	w := b.get("/user/logout")
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Empty(t, b.sid)

	// the old token is dead server-side too
	b.sid = sid
	w = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Empty(t, b.sid, "stale cookie cleared")
}

func TestGarbageCookieIsAnonymous(t *testing.T) {
	a := newApp(t, false, nil)
	b := &browser{a: a, sid: "garbage"}

	w := b.get("/dashboard")
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = b.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeetingFlow(t *testing.T) {
	a := newApp(t, false, nil)
	doc := a.signUp(t, "doc", "doctor")
	pat := a.signUp(t, "pat", "patient")
	other := a.signUp(t, "other", "patient")

	w := doc.post("/setup", url.Values{"embed_code_value": {`<iframe src="https://v.example/DEFAULT_ROOM"></iframe>`}})
	require.Equal(t, "/", w.Header().Get("Location"))

	w = doc.post("/meetings/create", url.Values{"start_date": {soon()}, "duration": {"30"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	m := a.onlyMeeting(t)

	w = pat.get("/meetings/book")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), m.ID)

	w = pat.post("/meetings/book", url.Values{"meeting_id": {m.ID}})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = other.post("/meetings/book", url.Values{"meeting_id": {m.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), model.ErrAlreadyBooked.Error())

	// booked slot no longer offered
	w = other.get("/meetings/book")
	assert.NotContains(t, w.Body.String(), m.ID)

	for _, b := range []*browser{doc, pat} {
		w = b.get("/meetings/join/" + m.ID)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<iframe src="https://v.example/meeting`+m.ID+`"></iframe>`)
		assert.NotContains(t, w.Body.String(), "DEFAULT_ROOM\"")
	}

	w = other.get("/meetings/join/" + m.ID)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = doc.get("/meetings/join/does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateMeetingValidation(t *testing.T) {
	a := newApp(t, false, nil)
	doc := a.signUp(t, "doc", "doctor")

	tests := []struct {
		name string
		form url.Values
	}{
		{"zero duration", url.Values{"start_date": {soon()}, "duration": {"0"}}},
		{"negative duration", url.Values{"start_date": {soon()}, "duration": {"-5"}}},
		{"not a number", url.Values{"start_date": {soon()}, "duration": {"half an hour"}}},
		{"overflowing duration", url.Values{"start_date": {soon()}, "duration": {"307445735"}}},
		{"longer than a day", url.Values{"start_date": {soon()}, "duration": {"1441"}}},
		{"missing start", url.Values{"duration": {"30"}}},
		{"garbled start", url.Values{"start_date": {"tomorrow-ish"}, "duration": {"30"}}},
		{"past start", url.Values{"start_date": {time.Now().Add(-time.Hour).Format(time.RFC3339)}, "duration": {"30"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doc.post("/meetings/create", tt.form)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	ms, err := a.mem.ListMeetings(context.Background(), model.MeetingFilter{})
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRoleGates(t *testing.T) {
	a := newApp(t, false, nil)
	doc := a.signUp(t, "doc", "doctor")
	pat := a.signUp(t, "pat", "patient")
	anon := &browser{a: a}

	assert.Equal(t, "/dashboard", pat.get("/meetings/create").Header().Get("Location"))
	assert.Equal(t, "/dashboard", pat.post("/meetings/create", url.Values{"start_date": {soon()}, "duration": {"30"}}).Header().Get("Location"))
	assert.Equal(t, "/dashboard", doc.get("/meetings/book").Header().Get("Location"))
	assert.Equal(t, "/", anon.get("/meetings/create").Header().Get("Location"))
	assert.Equal(t, "/", anon.get("/meetings/join/x").Header().Get("Location"))
	assert.Equal(t, "/", anon.get("/dashboard").Header().Get("Location"))

	assert.Equal(t, http.StatusOK, doc.get("/meetings/create").Code)
}

func TestSetupLock(t *testing.T) {
	a := newApp(t, true, nil)
	b := &browser{a: a}

	assert.Equal(t, http.StatusOK, b.get("/setup").Code)

	w := b.post("/setup", url.Values{})
	assert.Equal(t, "/setup", w.Header().Get("Location"), "missing field")

	w = b.post("/setup", url.Values{"embed_code_value": {"  ROOM=DEFAULT_ROOM  "}})
	assert.Equal(t, "/", w.Header().Get("Location"))

	v, err := a.mem.GetAppdata(context.Background(), model.EmbedCodeKey)
	require.NoError(t, err)
	assert.Equal(t, "ROOM=DEFAULT_ROOM", v)

	// locked now
	assert.Equal(t, "/", b.get("/setup").Header().Get("Location"))
	w = b.post("/setup", url.Values{"embed_code_value": {"other"}})
	assert.Equal(t, "/", w.Header().Get("Location"))

	v, err = a.mem.GetAppdata(context.Background(), model.EmbedCodeKey)
	require.NoError(t, err)
	assert.Equal(t, "ROOM=DEFAULT_ROOM", v)
}

func TestSetupUnlockedShowsValue(t *testing.T) {
	a := newApp(t, false, nil)
	b := &browser{a: a}
	b.post("/setup", url.Values{"embed_code_value": {"ROOM=DEFAULT_ROOM"}})

	w := b.get("/setup")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ROOM=DEFAULT_ROOM")
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t, false, nil)
	w := (&browser{a: a}).get("/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")
}

func TestStorageFailureRendersGenericError(t *testing.T) {
	a := newApp(t, false, nil)
	a.mem.FailNext = assert.AnError

	w := (&browser{a: a}).get("/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestCredentialRoutesRateLimited(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 1)
	t.Cleanup(rl.Stop)
	a := newApp(t, false, rl)

	b := &browser{a: a}
	form := url.Values{"username": {"x"}, "password": {"y"}}
	assert.Equal(t, http.StatusFound, b.post("/user/login", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, b.post("/user/login", form).Code)

	// pages are not limited
	assert.Equal(t, http.StatusOK, b.get("/").Code)
}
