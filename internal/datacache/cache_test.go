package datacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
)

// backend is an in-memory stand-in for the services that publishes changes
// to a hub the way they do.
type backend struct {
	mu          sync.Mutex
	hub         *realtime.Hub
	submissions []models.Submission
	works       []models.ApprovedWork
	seq         int
	listErr     error
	fetches     int
}

func newBackend(hub *realtime.Hub) *backend {
	return &backend{hub: hub}
}

func (b *backend) publish(tables ...string) {
	for _, table := range tables {
		_ = b.hub.Publish(context.Background(), realtime.NewEvent(table, realtime.ActionUpdate, ""))
	}
}

func (b *backend) ListPending(context.Context) ([]models.Submission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := []models.Submission{}
	for i := len(b.submissions) - 1; i >= 0; i-- {
		if b.submissions[i].IsPending() {
			out = append(out, b.submissions[i])
		}
	}
	return out, nil
}

func (b *backend) ListApprovedWorks(context.Context) ([]models.ApprovedWork, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := []models.ApprovedWork{}
	for i := len(b.works) - 1; i >= 0; i-- {
		if b.works[i].IsActive() {
			out = append(out, b.works[i])
		}
	}
	return out, nil
}

func (b *backend) Create(_ context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error) {
	if req.Name == "" || len(req.Files) == 0 || len(req.Files) > 10 {
		return nil, errors.New("invalid submission")
	}
	b.mu.Lock()
	b.seq++
	sub := models.Submission{
		ID:        fmt.Sprintf("sub-%d", b.seq),
		Name:      req.Name,
		Files:     req.Files,
		Timestamp: req.Timestamp,
		Status:    models.SubmissionPending,
	}
	b.submissions = append(b.submissions, sub)
	b.mu.Unlock()
	b.publish(realtime.TableSubmissions)
	return &sub, nil
}

func (b *backend) Approve(_ context.Context, id, _ string) (*dto.ApprovalResult, error) {
	b.mu.Lock()
	var work *models.ApprovedWork
	for i := range b.submissions {
		if b.submissions[i].ID == id && b.submissions[i].IsPending() {
			b.submissions[i].Status = models.SubmissionApproved
			s := b.submissions[i]
			work = &models.ApprovedWork{ID: s.ID, Name: s.Name, Files: s.Files, Timestamp: s.Timestamp, Status: models.WorkApproved}
			b.works = append(b.works, *work)
		}
	}
	b.mu.Unlock()
	if work == nil {
		return nil, sql.ErrNoRows
	}
	b.publish(realtime.TableSubmissions, realtime.TableApprovedWorks)
	return &dto.ApprovalResult{Work: work, StudentName: work.Name, BannerTTLSeconds: 5}, nil
}

func (b *backend) Reject(_ context.Context, id, _ string) (*models.Submission, error) {
	b.mu.Lock()
	var found *models.Submission
	for i := range b.submissions {
		if b.submissions[i].ID == id && b.submissions[i].IsPending() {
			b.submissions[i].Status = models.SubmissionRejected
			s := b.submissions[i]
			found = &s
		}
	}
	b.mu.Unlock()
	if found == nil {
		return nil, sql.ErrNoRows
	}
	b.publish(realtime.TableSubmissions)
	return found, nil
}

func (b *backend) DeleteWork(_ context.Context, id, _ string) error {
	b.mu.Lock()
	deleted := false
	for i := range b.works {
		if b.works[i].ID == id && b.works[i].IsActive() {
			b.works[i].Status = models.WorkDeleted
			deleted = true
		}
	}
	b.mu.Unlock()
	if !deleted {
		return sql.ErrNoRows
	}
	b.publish(realtime.TableApprovedWorks)
	return nil
}

func (b *backend) work(id string) (models.ApprovedWork, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.works {
		if w.ID == id {
			return w, true
		}
	}
	return models.ApprovedWork{}, false
}

func upload(name string, n int) dto.CreateSubmissionRequest {
	files := make([]models.EncodedFile, n)
	for i := range files {
		files[i] = models.EncodedFile{Name: fmt.Sprintf("f%d.txt", i), Type: "text/plain", Size: 2, Base64: "aGk="}
	}
	return dto.CreateSubmissionRequest{Name: name, Files: files, Timestamp: "now"}
}

func mounted(t *testing.T, b *backend, hub *realtime.Hub) *Cache {
	t.Helper()
	c := New(b, b, hub, nil)
	c.Mount(context.Background())
	t.Cleanup(c.Unmount)
	return c
}

func TestCacheMountLoadsBothLists(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	_, err := b.Create(context.Background(), upload("Alice", 1))
	require.NoError(t, err)

	c := mounted(t, b, hub)
	snap := c.Snapshot()
	assert.Len(t, snap.Pending, 1)
	assert.Empty(t, snap.ApprovedWorks)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.RefreshedAt.IsZero())
}

func TestCacheRefreshIsIdempotent(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	for _, name := range []string{"Alice", "Bob", "Cara"} {
		_, err := b.Create(context.Background(), upload(name, 1))
		require.NoError(t, err)
	}
	c := New(b, b, nil, nil)

	require.NoError(t, c.Refresh(context.Background()))
	first := c.Snapshot()
	require.NoError(t, c.Refresh(context.Background()))
	second := c.Snapshot()
	assert.Equal(t, first.Pending, second.Pending)
	assert.Equal(t, first.ApprovedWorks, second.ApprovedWorks)
}

func TestCacheCreateThenApprove(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	c := mounted(t, b, hub)

	sub, err := c.CreateSubmission(context.Background(), upload("Alice", 2))
	require.NoError(t, err)
	require.Len(t, c.Snapshot().Pending, 1)

	result := c.Approve(context.Background(), sub.ID, "DEVELOPER")
	require.NotNil(t, result)
	assert.Equal(t, "Alice", result.StudentName)
	assert.Equal(t, 5, result.BannerTTLSeconds)

	snap := c.Snapshot()
	assert.Empty(t, snap.Pending)
	require.Len(t, snap.ApprovedWorks, 1)
	assert.Equal(t, sub.ID, snap.ApprovedWorks[0].ID)
	assert.Equal(t, sub.Files, snap.ApprovedWorks[0].Files)
}

func TestCacheReject(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	c := New(b, b, nil, nil)

	sub, err := c.CreateSubmission(context.Background(), upload("Bob", 1))
	require.NoError(t, err)
	c.Reject(context.Background(), sub.ID, "DEVELOPER")

	snap := c.Snapshot()
	assert.Empty(t, snap.Pending)
	assert.Empty(t, snap.ApprovedWorks)
	assert.Empty(t, snap.Error)

	// Status never leaves rejected.
	assert.Nil(t, c.Approve(context.Background(), sub.ID, "DEVELOPER"))
	assert.NotEmpty(t, c.Snapshot().Error)
	assert.Empty(t, c.Snapshot().ApprovedWorks)
}

func TestCacheDeleteWorkKeepsRow(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	c := mounted(t, b, hub)

	sub, err := c.CreateSubmission(context.Background(), upload("Cara", 1))
	require.NoError(t, err)
	require.NotNil(t, c.Approve(context.Background(), sub.ID, "DEVELOPER"))

	c.DeleteWork(context.Background(), sub.ID, "DEVELOPER")
	assert.Empty(t, c.Snapshot().ApprovedWorks)

	row, ok := b.work(sub.ID)
	require.True(t, ok)
	assert.Equal(t, models.WorkDeleted, row.Status)
}

func TestCacheCreateSubmissionReportsErrors(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	c := mounted(t, b, hub)

	_, err := c.CreateSubmission(context.Background(), upload("Dan", 0))
	require.Error(t, err)
	_, err = c.CreateSubmission(context.Background(), upload("Dan", 11))
	require.Error(t, err)
	assert.Empty(t, c.Snapshot().Pending)
}

func TestCacheRefreshErrorEmptiesLists(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	_, err := b.Create(context.Background(), upload("Alice", 1))
	require.NoError(t, err)
	c := New(b, b, nil, nil)
	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, c.Snapshot().Pending, 1)

	b.mu.Lock()
	b.listErr = errors.New("db down")
	b.mu.Unlock()
	require.Error(t, c.Refresh(context.Background()))
	snap := c.Snapshot()
	assert.Empty(t, snap.Pending)
	assert.Empty(t, snap.ApprovedWorks)
	assert.Contains(t, snap.Error, "db down")

	b.mu.Lock()
	b.listErr = nil
	b.mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))
	assert.Empty(t, c.Snapshot().Error)
	assert.Len(t, c.Snapshot().Pending, 1)
}

func TestCacheFanOutAcrossInstances(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	viewerA := mounted(t, b, hub)
	viewerB := mounted(t, b, hub)

	sub, err := viewerA.CreateSubmission(context.Background(), upload("Alice", 1))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(viewerB.Snapshot().Pending) == 1 }, time.Second, 5*time.Millisecond)

	require.NotNil(t, viewerA.Approve(context.Background(), sub.ID, "DEVELOPER"))
	require.Eventually(t, func() bool {
		snap := viewerB.Snapshot()
		return len(snap.Pending) == 0 && len(snap.ApprovedWorks) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCacheUnmountStopsFollowing(t *testing.T) {
	hub := realtime.NewHub(4, nil)
	b := newBackend(hub)
	c := New(b, b, hub, nil)
	c.Mount(context.Background())
	c.Mount(context.Background())
	require.Equal(t, 1, hub.Len())

	c.Unmount()
	c.Unmount()
	assert.Zero(t, hub.Len())

	_, err := b.Create(context.Background(), upload("Eve", 1))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.Snapshot().Pending)
}

func TestCacheTeacherLogins(t *testing.T) {
	c := New(newBackend(realtime.NewHub(1, nil)), nil, nil, nil)
	c.AddTeacherLogin("Ms. Rahma")
	c.AddTeacherLogin("Mr. Budi")

	logins := c.TeacherLogins()
	require.Len(t, logins, 2)
	assert.Equal(t, "Mr. Budi", logins[0].Name)
	assert.Len(t, c.Snapshot().TeacherLogins, 2)
}
