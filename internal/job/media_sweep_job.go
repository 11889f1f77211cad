package job

import (
	"OurSpace/internal/pkg/logger"
	"OurSpace/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const sweepTimeout = 2 * time.Minute

// MediaDeleter 删除对象存储中的媒体
type MediaDeleter interface {
	Delete(ctx context.Context, externalID string) error
}

// MediaSweepJob 清理补偿删除失败、滞留在对象存储中的消息媒体
type MediaSweepJob struct {
	orphanRepo repository.MediaOrphanRepo
	deleter    MediaDeleter
	maxAge     time.Duration
	now        func() time.Time
}

func NewMediaSweepJob(orphanRepo repository.MediaOrphanRepo, deleter MediaDeleter, maxAge time.Duration) *MediaSweepJob {
	return &MediaSweepJob{
		orphanRepo: orphanRepo,
		deleter:    deleter,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func (s *MediaSweepJob) Run() {
	ctx, cancel := context.WithTimeout(logger.WithTrace(context.Background(), "job-"+uuid.NewString()), sweepTimeout)
	defer cancel()

	cleaned, failed := s.Sweep(ctx)
	if cleaned > 0 || failed > 0 {
		log.InfoContext(ctx, "media sweep job finished", "cleaned_count", cleaned, "failed_count", failed)
	}
}

// Sweep 删除超过 maxAge 的孤儿对象，删除成功后移除登记
func (s *MediaSweepJob) Sweep(ctx context.Context) (int, int) {
	orphans, err := s.orphanRepo.List(ctx)
	if err != nil {
		log.ErrorContext(ctx, "failed to list orphan media", "err", err)
		return 0, 0
	}

	deadline := s.now().Add(-s.maxAge)
	cleaned, failed := 0, 0
	for externalID, createdAt := range orphans {
		if createdAt.After(deadline) {
			continue
		}

		if err = s.deleter.Delete(ctx, externalID); err != nil {
			failed++
			log.WarnContext(ctx, "failed to delete orphan media", "external_id", externalID, "err", err)
			continue
		}
		if err = s.orphanRepo.Remove(ctx, externalID); err != nil {
			log.ErrorContext(ctx, "failed to remove orphan record", "external_id", externalID, "err", err)
		}
		cleaned++
	}
	return cleaned, failed
}
