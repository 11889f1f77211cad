package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeOrphanRepo struct {
	items   map[string]time.Time
	listErr error
}

func (f *fakeOrphanRepo) Record(_ context.Context, externalID string) error {
	f.items[externalID] = time.Now()
	return nil
}

func (f *fakeOrphanRepo) List(context.Context) (map[string]time.Time, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	res := make(map[string]time.Time, len(f.items))
	for k, v := range f.items {
		res[k] = v
	}
	return res, nil
}

func (f *fakeOrphanRepo) Remove(_ context.Context, externalID string) error {
	delete(f.items, externalID)
	return nil
}

type fakeDeleter struct {
	deleted []string
	failOn  string
}

func (f *fakeDeleter) Delete(_ context.Context, externalID string) error {
	if externalID == f.failOn {
		return errors.New("minio unavailable")
	}
	f.deleted = append(f.deleted, externalID)
	return nil
}

func TestMediaSweepJob_Sweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeOrphanRepo{items: map[string]time.Time{
		"old.png":    now.Add(-2 * time.Hour),
		"broken.png": now.Add(-3 * time.Hour),
		"fresh.png":  now.Add(-10 * time.Minute),
		"corrupt":    {},
	}}
	deleter := &fakeDeleter{failOn: "broken.png"}

	j := NewMediaSweepJob(repo, deleter, time.Hour)
	j.now = func() time.Time { return now }

	cleaned, failed := j.Sweep(context.Background())

	assert.Equal(t, 2, cleaned)
	assert.Equal(t, 1, failed)
	assert.ElementsMatch(t, []string{"old.png", "corrupt"}, deleter.deleted)
	assert.Contains(t, repo.items, "fresh.png")
	assert.Contains(t, repo.items, "broken.png")
	assert.NotContains(t, repo.items, "old.png")
}

func TestMediaSweepJob_ListFailure(t *testing.T) {
	repo := &fakeOrphanRepo{listErr: errors.New("redis down")}
	deleter := &fakeDeleter{}

	cleaned, failed := NewMediaSweepJob(repo, deleter, time.Hour).Sweep(context.Background())
	assert.Zero(t, cleaned)
	assert.Zero(t, failed)
	assert.Empty(t, deleter.deleted)
}
