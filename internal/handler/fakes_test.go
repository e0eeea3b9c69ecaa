package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portfolio-api/internal/datacache"
	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/service"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

type portalEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) portalEnvelope {
	t.Helper()
	var env portalEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// fakePortal satisfies every service interface the handlers consume.
type fakePortal struct {
	created     *dto.CreateSubmissionRequest
	createErr   error
	pending     []models.Submission
	approveErr  error
	rejectErr   error
	deleteErr   error
	works       []dto.WorkView
	cacheHit    bool
	work        *models.ApprovedWork
	file        *dto.FileDownload
	fileErr     error
	lastActor   string
	visitors    []models.Visitor
	tracked     *dto.TrackVisitorRequest
	logs        []models.ModerationLog
	purgeErr    error
	exportFile  *service.ExportFile
	exportErr   error
	lastFormat  string
	loginErr    error
	snapshot    datacache.Snapshot
	refreshed   int
}

func (f *fakePortal) Create(_ context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &req
	return &models.Submission{ID: "sub-1", Name: req.Name, Files: req.Files, Status: models.SubmissionPending}, nil
}

func (f *fakePortal) ListPending(context.Context) ([]models.Submission, error) {
	return f.pending, nil
}

func (f *fakePortal) SubmissionViews(subs []models.Submission) []dto.SubmissionView {
	views := make([]dto.SubmissionView, len(subs))
	for i, s := range subs {
		views[i] = f.SubmissionView(s)
	}
	return views
}

func (f *fakePortal) SubmissionView(sub models.Submission) dto.SubmissionView {
	view := dto.NewSubmissionView(sub)
	for i := range view.Files {
		if view.Files[i].Previewable {
			view.Files[i].DownloadURL = "https://files.example/" + sub.ID
		}
	}
	return view
}

func (f *fakePortal) Approve(_ context.Context, id, actor string) (*dto.ApprovalResult, error) {
	f.lastActor = actor
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	work := &models.ApprovedWork{ID: id, Name: "Alice", Status: models.WorkApproved}
	return &dto.ApprovalResult{Work: work, StudentName: "Alice", BannerTTLSeconds: 5}, nil
}

func (f *fakePortal) Reject(_ context.Context, id, actor string) (*models.Submission, error) {
	f.lastActor = actor
	if f.rejectErr != nil {
		return nil, f.rejectErr
	}
	return &models.Submission{ID: id, Name: "Bob", Status: models.SubmissionRejected}, nil
}

func (f *fakePortal) DeleteWork(_ context.Context, _ string, actor string) error {
	f.lastActor = actor
	return f.deleteErr
}

func (f *fakePortal) ListPublicWorks(context.Context) ([]dto.WorkView, bool, error) {
	return f.works, f.cacheHit, nil
}

func (f *fakePortal) GetWork(_ context.Context, id string) (*dto.WorkView, error) {
	for _, w := range f.works {
		if w.ID == id {
			w := w
			return &w, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
}

func (f *fakePortal) GetWorkRecord(context.Context, string) (*models.ApprovedWork, error) {
	if f.work == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
	}
	return f.work, nil
}

func (f *fakePortal) WorkFile(context.Context, string, int) (*dto.FileDownload, error) {
	return f.file, f.fileErr
}

func (f *fakePortal) SignedFile(context.Context, string) (*dto.FileDownload, error) {
	return f.file, f.fileErr
}

func (f *fakePortal) Track(_ context.Context, req dto.TrackVisitorRequest) (*models.Visitor, error) {
	f.tracked = &req
	return &models.Visitor{ID: "v-1", Name: req.Name, Page: models.VisitorPage(req.Page), DeviceType: models.DeviceType(req.DeviceType)}, nil
}

func (f *fakePortal) List(_ context.Context, filter models.VisitorFilter) ([]models.Visitor, *models.Pagination, error) {
	return f.visitors, &models.Pagination{Limit: filter.Limit, Offset: filter.Offset, TotalCount: len(f.visitors)}, nil
}

func (f *fakePortal) ListLogs(_ context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, *models.Pagination, error) {
	return f.logs, &models.Pagination{Limit: filter.Limit, Offset: filter.Offset, TotalCount: len(f.logs)}, nil
}

func (f *fakePortal) Trigger() (*dto.PurgeAccepted, error) {
	if f.purgeErr != nil {
		return nil, f.purgeErr
	}
	return &dto.PurgeAccepted{JobID: "job-1", Enqueued: time.Now()}, nil
}

func (f *fakePortal) Export(_ context.Context, _ string, format string) (*service.ExportFile, error) {
	f.lastFormat = format
	return f.exportFile, f.exportErr
}

func (f *fakePortal) DeveloperLogin(context.Context, models.DeveloperLoginRequest) (*models.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "dev-token", Role: models.RoleDeveloper}, nil
}

func (f *fakePortal) TeacherLogin(_ context.Context, req models.TeacherLoginRequest) (*models.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "teacher-token", Role: models.RoleTeacher, Name: req.Name}, nil
}

// dashboard cache surface

func (f *fakePortal) Snapshot() datacache.Snapshot { return f.snapshot }

func (f *fakePortal) Refresh(context.Context) error {
	f.refreshed++
	return nil
}

type fakeDashboard struct{ *fakePortal }

func (d fakeDashboard) Approve(ctx context.Context, id, actor string) *dto.ApprovalResult {
	result, err := d.fakePortal.Approve(ctx, id, actor)
	if err != nil {
		d.snapshot.Error = err.Error()
		return nil
	}
	return result
}

func (d fakeDashboard) Reject(ctx context.Context, id, actor string) {
	if _, err := d.fakePortal.Reject(ctx, id, actor); err != nil {
		d.snapshot.Error = err.Error()
	}
}

func (d fakeDashboard) DeleteWork(ctx context.Context, id, actor string) {
	if err := d.fakePortal.DeleteWork(ctx, id, actor); err != nil {
		d.snapshot.Error = err.Error()
	}
}

// tokenStub accepts "dev" and "teacher" as bearer tokens.
type tokenStub struct{}

func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "dev":
		return &models.JWTClaims{Role: models.RoleDeveloper}, nil
	case "teacher":
		claims := &models.JWTClaims{Role: models.RoleTeacher, Name: "Ms. Rahma"}
		now := time.Now()
		claims.IssuedAt = jwtTime(now)
		claims.ExpiresAt = jwtTime(now.Add(time.Hour))
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, stringsReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func jwtTime(t time.Time) *jwt.NumericDate { return jwt.NewNumericDate(t) }

func stringsReader(s string) io.Reader {
	if s == "" {
		return nil
	}
	return strings.NewReader(s)
}

func serve(r *gin.Engine, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, stringsReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
