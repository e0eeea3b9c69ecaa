package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	"github.com/noah-isme/student-portfolio-api/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Table
	}
	return out
}

type recordingLogs struct {
	entries []models.ModerationLog
	total   int
	listErr error
}

func (l *recordingLogs) Create(_ context.Context, entry *models.ModerationLog) error {
	entry.ID = "log-" + entry.Action
	entry.CreatedAt = time.Now().UTC()
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *recordingLogs) List(_ context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error) {
	if l.listErr != nil {
		return nil, 0, l.listErr
	}
	if filter.Offset >= len(l.entries) {
		return []models.ModerationLog{}, len(l.entries), nil
	}
	end := filter.Offset + filter.Limit
	if end > len(l.entries) {
		end = len(l.entries)
	}
	return l.entries[filter.Offset:end], len(l.entries), nil
}

// memoryStore mimics the repositories' status guards in memory.
type memoryStore struct {
	mu          sync.Mutex
	submissions map[string]*models.Submission
	works       map[string]*models.ApprovedWork
	order       []string
	createCalls int
	createErr   error
	listErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		submissions: map[string]*models.Submission{},
		works:       map[string]*models.ApprovedWork{},
	}
}

func (m *memoryStore) seed(sub models.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.Status == "" {
		sub.Status = models.SubmissionPending
	}
	m.submissions[sub.ID] = &sub
	m.order = append([]string{sub.ID}, m.order...)
}

func (m *memoryStore) ListPending(_ context.Context, excludeName string) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Submission{}
	for _, id := range m.order {
		sub := m.submissions[id]
		if sub.IsPending() && sub.Name != excludeName {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (m *memoryStore) Create(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	m.createCalls++
	err := m.createErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = newTestID(m.createCalls)
	}
	sub.Status = models.SubmissionPending
	sub.CreatedAt = time.Now().UTC()
	m.seed(*sub)
	return nil
}

func (m *memoryStore) Approve(_ context.Context, id string) (*models.ApprovedWork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !sub.IsPending() {
		return nil, repository.ErrNotPending
	}
	if _, exists := m.works[id]; exists {
		return nil, repository.ErrDuplicate
	}
	work := &models.ApprovedWork{
		ID:        sub.ID,
		Name:      sub.Name,
		Files:     append(models.EncodedFiles{}, sub.Files...),
		Timestamp: sub.Timestamp,
		Status:    models.WorkApproved,
		CreatedAt: time.Now().UTC(),
	}
	m.works[id] = work
	sub.Status = models.SubmissionApproved
	cp := *work
	return &cp, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id string, status models.SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok || !sub.IsPending() {
		return sql.ErrNoRows
	}
	sub.Status = status
	return nil
}

// workStore is the approved_works view of a memoryStore.
type workStore struct{ *memoryStore }

func (w workStore) ListActive(_ context.Context, excludeName string) ([]models.ApprovedWork, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listErr != nil {
		return nil, w.listErr
	}
	out := []models.ApprovedWork{}
	for _, id := range w.order {
		if work, ok := w.works[id]; ok && work.IsActive() && work.Name != excludeName {
			out = append(out, *work)
		}
	}
	return out, nil
}

func (w workStore) GetByID(_ context.Context, id string) (*models.ApprovedWork, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	work, ok := w.works[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *work
	return &cp, nil
}

func (w workStore) SoftDelete(_ context.Context, id string, deletedAt time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	work, ok := w.works[id]
	if !ok || !work.IsActive() {
		return sql.ErrNoRows
	}
	work.Status = models.WorkDeleted
	work.DeletedAt = &deletedAt
	return nil
}

func newTestID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}
