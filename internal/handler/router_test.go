package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
)

func newTestRouter(ready error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	fake := &fakePortal{works: []dto.WorkView{{ID: "w-1", Name: "Alice"}}}
	r := gin.New()
	Register(r, RouterConfig{APIPrefix: "/api/v1", Tokens: tokenStub{}}, Handlers{
		Auth:           NewAuthHandler(fake),
		Submissions:    NewSubmissionHandler(fake, fake, fake),
		Works:          NewWorkHandler(fake, fake, fake),
		Changes:        NewChangesHandler(realtime.NewHub(1, nil), nil, 0),
		Visitors:       NewVisitorHandler(fake),
		AccessRequests: NewAccessRequestHandler(&fakeAccessRequests{}),
		Dashboard:      NewDashboardHandler(fakeDashboard{fake}, fake),
		Moderation:     NewModerationHandler(fake, nil, fake),
		Metrics: NewMetricsHandler(nil, map[string]Pinger{
			"database": PingFunc(func(context.Context) error { return ready }),
		}),
	})
	return r
}

func TestRouterAccessControl(t *testing.T) {
	r := newTestRouter(nil)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public gallery", http.MethodGet, "/api/v1/works", "", http.StatusOK},
		{"public work", http.MethodGet, "/api/v1/works/w-1", "", http.StatusOK},
		{"pending needs token", http.MethodGet, "/api/v1/submissions", "", http.StatusUnauthorized},
		{"pending bad token", http.MethodGet, "/api/v1/submissions", "forged", http.StatusUnauthorized},
		{"pending teacher forbidden", http.MethodGet, "/api/v1/submissions", "teacher", http.StatusForbidden},
		{"pending developer", http.MethodGet, "/api/v1/submissions", "dev", http.StatusOK},
		{"dashboard developer", http.MethodGet, "/api/v1/dashboard", "dev", http.StatusOK},
		{"dashboard teacher forbidden", http.MethodGet, "/api/v1/dashboard", "teacher", http.StatusForbidden},
		{"delete needs token", http.MethodDelete, "/api/v1/works/w-1", "", http.StatusUnauthorized},
		{"delete developer", http.MethodDelete, "/api/v1/works/w-1", "dev", http.StatusNoContent},
		{"teacher session", http.MethodGet, "/api/v1/teacher/session", "teacher", http.StatusOK},
		{"teacher session developer forbidden", http.MethodGet, "/api/v1/teacher/session", "dev", http.StatusForbidden},
		{"purge disabled", http.MethodPost, "/api/v1/moderation/purge", "dev", http.StatusServiceUnavailable},
		{"visitors list teacher forbidden", http.MethodGet, "/api/v1/visitors", "teacher", http.StatusForbidden},
		{"access requests need token", http.MethodGet, "/api/v1/access-requests", "", http.StatusUnauthorized},
		{"access requests teacher forbidden", http.MethodGet, "/api/v1/access-requests", "teacher", http.StatusForbidden},
		{"access requests developer", http.MethodGet, "/api/v1/access-requests", "dev", http.StatusOK},
		{"access request approve developer", http.MethodPost, "/api/v1/access-requests/req-1/approve", "dev", http.StatusOK},
		{"access request reject teacher forbidden", http.MethodPost, "/api/v1/access-requests/req-1/reject", "teacher", http.StatusForbidden},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"metrics off", http.MethodGet, "/metrics", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.method, tc.path, "", tc.token)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouterVisitorTrackUsesOptionalToken(t *testing.T) {
	r := newTestRouter(nil)

	rec := serve(r, http.MethodPost, "/api/v1/visitors", `{"page":"teacher","deviceType":"desktop"}`, "teacher")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ms. Rahma")

	rec = serve(r, http.MethodPost, "/api/v1/visitors", `{"page":"student","deviceType":"mobile"}`, "forged")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouterReadyReportsFailingDependency(t *testing.T) {
	r := newTestRouter(errors.New("connection refused"))

	rec := serve(r, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unavailable")
}

func TestRouterAccessRequestIsPublic(t *testing.T) {
	r := newTestRouter(nil)

	rec := serve(r, http.MethodPost, "/api/v1/access-requests", `{"studentName":"Alice","email":"alice@example.com"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
