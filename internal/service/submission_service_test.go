package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

func newSubmissionServiceForTest(store *memoryStore, pub realtime.Publisher) *SubmissionService {
	return NewSubmissionService(store, workStore{store}, pub, nil, nil, nil, nil, SubmissionServiceConfig{SentinelName: "Test Student", MaxFiles: 10})
}

func testFiles(n int) []models.EncodedFile {
	out := make([]models.EncodedFile, n)
	for i := range out {
		out[i] = models.EncodedFile{Name: "file.txt", Type: "text/plain", Size: 2, Base64: "aGk="}
	}
	return out
}

func TestSubmissionServiceCreate(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := newSubmissionServiceForTest(store, pub)

	sub, err := svc.Create(context.Background(), dto.CreateSubmissionRequest{Name: "  Alice ", Files: testFiles(1), Timestamp: "3/14/2024, 10:00:00 AM"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", sub.Name)
	assert.Equal(t, models.SubmissionPending, sub.Status)
	assert.Equal(t, "3/14/2024, 10:00:00 AM", sub.Timestamp)
	assert.Equal(t, []string{realtime.TableSubmissions}, pub.tables())

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sub.ID, pending[0].ID)
}

func TestSubmissionServiceCreateFillsTimestamp(t *testing.T) {
	store := newMemoryStore()
	svc := newSubmissionServiceForTest(store, nil)

	sub, err := svc.Create(context.Background(), dto.CreateSubmissionRequest{Name: "Bob", Files: testFiles(2)})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.Timestamp)
}

func TestSubmissionServiceCreateRejectsBeforeStore(t *testing.T) {
	cases := map[string]dto.CreateSubmissionRequest{
		"blank name":     {Name: "   ", Files: testFiles(1)},
		"no files":       {Name: "Alice"},
		"too many files": {Name: "Alice", Files: testFiles(11)},
		"unnamed file":   {Name: "Alice", Files: []models.EncodedFile{{Name: " ", Base64: "aGk="}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemoryStore()
			pub := &recordingPublisher{}
			svc := newSubmissionServiceForTest(store, pub)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Zero(t, store.createCalls)
			assert.Empty(t, pub.tables())
		})
	}
}

func TestSubmissionServiceCreateAcceptsTenFiles(t *testing.T) {
	store := newMemoryStore()
	svc := newSubmissionServiceForTest(store, nil)

	_, err := svc.Create(context.Background(), dto.CreateSubmissionRequest{Name: "Alice", Files: testFiles(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, store.createCalls)
}

func TestSubmissionServiceCreateStoreError(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("db down")
	pub := &recordingPublisher{}
	svc := newSubmissionServiceForTest(store, pub)

	_, err := svc.Create(context.Background(), dto.CreateSubmissionRequest{Name: "Alice", Files: testFiles(1)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pub.tables())
}

func TestSubmissionServiceListsExcludeSentinel(t *testing.T) {
	store := newMemoryStore()
	store.seed(models.Submission{ID: newTestID(1), Name: "Test Student", Files: testFiles(1)})
	store.seed(models.Submission{ID: newTestID(2), Name: "Alice", Files: testFiles(1)})
	svc := newSubmissionServiceForTest(store, nil)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Alice", pending[0].Name)
}

func TestSubmissionServicePublicWorksOmitPayload(t *testing.T) {
	store := newMemoryStore()
	id := newTestID(1)
	store.seed(models.Submission{ID: id, Name: "Alice", Files: []models.EncodedFile{{Name: "a.png", Type: "image/png", Base64: "aGk="}, {Name: "b.doc"}}})
	_, err := store.Approve(context.Background(), id)
	require.NoError(t, err)
	svc := newSubmissionServiceForTest(store, nil)

	views, _, err := svc.ListPublicWorks(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Files, 2)
	assert.True(t, views[0].Files[0].Previewable)
	assert.False(t, views[0].Files[1].Previewable)
}

func TestSubmissionServiceGetWork(t *testing.T) {
	store := newMemoryStore()
	id := newTestID(1)
	store.seed(models.Submission{ID: id, Name: "Alice", Files: testFiles(1)})
	_, err := store.Approve(context.Background(), id)
	require.NoError(t, err)
	svc := newSubmissionServiceForTest(store, nil)

	view, err := svc.GetWork(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", view.Name)

	_, err = svc.GetWork(context.Background(), "not-a-uuid")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.GetWork(context.Background(), newTestID(9))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, workStore{store}.SoftDelete(context.Background(), id, view.CreatedAt))
	_, err = svc.GetWork(context.Background(), id)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	record, err := svc.GetWorkRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.WorkDeleted, record.Status)
}
