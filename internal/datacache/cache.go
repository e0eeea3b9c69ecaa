// Package datacache keeps a live copy of the moderation lists for one viewer.
// It re-fetches everything whenever either table changes.
package datacache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

// Source loads the lists and accepts new submissions.
type Source interface {
	ListPending(ctx context.Context) ([]models.Submission, error)
	ListApprovedWorks(ctx context.Context) ([]models.ApprovedWork, error)
	Create(ctx context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error)
}

// Moderator performs moderation actions.
type Moderator interface {
	Approve(ctx context.Context, id, actor string) (*dto.ApprovalResult, error)
	Reject(ctx context.Context, id, actor string) (*models.Submission, error)
	DeleteWork(ctx context.Context, id, actor string) error
}

// Snapshot is a consistent copy of the cache state.
type Snapshot struct {
	Pending       []models.Submission   `json:"pendingSubmissions"`
	ApprovedWorks []models.ApprovedWork `json:"approvedWorks"`
	TeacherLogins []models.TeacherLogin `json:"teacherLogins"`
	Error         string                `json:"error,omitempty"`
	Loading       bool                  `json:"loading"`
	RefreshedAt   time.Time             `json:"refreshedAt"`
}

// Cache holds pending submissions, approved works and the teacher logins seen
// by this process.
type Cache struct {
	source     Source
	moderator  Moderator
	subscriber realtime.Subscriber
	logger     *zap.Logger
	now        func() time.Time

	mu            sync.RWMutex
	pending       []models.Submission
	works         []models.ApprovedWork
	teacherLogins []models.TeacherLogin
	lastErr       error
	loading       bool
	refreshedAt   time.Time

	refreshMu sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	sub       *realtime.Subscription
	done      chan struct{}
}

// New constructs an unmounted cache.
func New(source Source, moderator Moderator, subscriber realtime.Subscriber, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		source:        source,
		moderator:     moderator,
		subscriber:    subscriber,
		logger:        logger,
		now:           time.Now,
		pending:       []models.Submission{},
		works:         []models.ApprovedWork{},
		teacherLogins: []models.TeacherLogin{},
	}
}

// Mount loads both lists and starts following changes. It is a no-op when
// already mounted.
func (c *Cache) Mount(ctx context.Context) {
	c.lifecycle.Lock()
	if c.done != nil {
		c.lifecycle.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	if c.subscriber != nil {
		// Subscribe first so changes made during the initial load still
		// trigger a refresh.
		c.sub = c.subscriber.Subscribe(realtime.AllTables...)
	}
	sub, done := c.sub, c.done
	c.lifecycle.Unlock()

	_ = c.Refresh(runCtx)
	go c.follow(runCtx, sub, done)
}

// Unmount stops following changes. Safe to call more than once.
func (c *Cache) Unmount() {
	c.lifecycle.Lock()
	if c.done == nil {
		c.lifecycle.Unlock()
		return
	}
	c.cancel()
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	done := c.done
	c.cancel, c.sub, c.done = nil, nil, nil
	c.lifecycle.Unlock()
	<-done
}

func (c *Cache) follow(ctx context.Context, sub *realtime.Subscription, done chan struct{}) {
	defer close(done)
	if sub == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			drain(sub)
			c.logger.Debug("change received", zap.String("table", ev.Table), zap.String("action", ev.Action))
			_ = c.Refresh(ctx)
		}
	}
}

// drain discards queued events; one refresh covers them all.
func drain(sub *realtime.Subscription) {
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Refresh re-fetches both lists. A list that fails to load is emptied and the
// error is kept until the next successful refresh.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	pending, pendingErr := c.source.ListPending(ctx)
	works, worksErr := c.source.ListApprovedWorks(ctx)
	err := errors.Join(pendingErr, worksErr)

	c.mu.Lock()
	if pendingErr != nil || pending == nil {
		pending = []models.Submission{}
	}
	if worksErr != nil || works == nil {
		works = []models.ApprovedWork{}
	}
	c.pending = pending
	c.works = works
	c.lastErr = err
	c.loading = false
	c.refreshedAt = c.now().UTC()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to refresh portfolio data", zap.Error(err))
	}
	return err
}

// CreateSubmission stores a submission and refreshes. Unlike the moderation
// actions it reports failures to the caller.
func (c *Cache) CreateSubmission(ctx context.Context, req dto.CreateSubmissionRequest) (*models.Submission, error) {
	sub, err := c.source.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = c.Refresh(ctx)
	return sub, nil
}

// Approve approves a submission. Failures are logged and kept as the error
// state; the result is nil in that case.
func (c *Cache) Approve(ctx context.Context, id, actor string) *dto.ApprovalResult {
	result, err := c.moderator.Approve(ctx, id, actor)
	c.settle(ctx, "approve", id, err)
	if err != nil {
		return nil
	}
	return result
}

// Reject rejects a submission, swallowing failures like Approve.
func (c *Cache) Reject(ctx context.Context, id, actor string) {
	_, err := c.moderator.Reject(ctx, id, actor)
	c.settle(ctx, "reject", id, err)
}

// DeleteWork soft deletes an approved work, swallowing failures like Approve.
func (c *Cache) DeleteWork(ctx context.Context, id, actor string) {
	err := c.moderator.DeleteWork(ctx, id, actor)
	c.settle(ctx, "delete", id, err)
}

func (c *Cache) settle(ctx context.Context, op, id string, err error) {
	_ = c.Refresh(ctx)
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("op", op), zap.String("id", id), zap.Error(err)}
	if errors.Is(err, appErrors.ErrConflict) || errors.Is(err, appErrors.ErrNotFound) {
		// Another moderator got there first; the refresh above already shows it.
		c.logger.Info("moderation action on stale view", fields...)
	} else {
		c.logger.Warn("moderation action failed", fields...)
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// AddTeacherLogin records a teacher entering the portal, newest first.
func (c *Cache) AddTeacherLogin(name string) models.TeacherLogin {
	login := models.TeacherLogin{Name: name, Time: c.now().UTC()}
	c.mu.Lock()
	c.teacherLogins = append([]models.TeacherLogin{login}, c.teacherLogins...)
	c.mu.Unlock()
	return login
}

// TeacherLogins returns the recorded teacher logins.
func (c *Cache) TeacherLogins() []models.TeacherLogin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.TeacherLogin{}, c.teacherLogins...)
}

// Err returns the current error state.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Snapshot copies the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Pending:       append([]models.Submission{}, c.pending...),
		ApprovedWorks: append([]models.ApprovedWork{}, c.works...),
		TeacherLogins: append([]models.TeacherLogin{}, c.teacherLogins...),
		Loading:       c.loading,
		RefreshedAt:   c.refreshedAt,
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}
