package repository

import (
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/redis"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

type orphanMeta struct {
	CreatedAt int64 `json:"created_at"`
}

// MediaOrphanRepo 补偿删除失败的对象，等待定时任务清理
type MediaOrphanRepo interface {
	Record(ctx context.Context, externalID string) error
	List(ctx context.Context) (map[string]time.Time, error)
	Remove(ctx context.Context, externalID string) error
}

type mediaOrphanRepoImpl struct{}

func NewMediaOrphanRepo() MediaOrphanRepo {
	return &mediaOrphanRepoImpl{}
}

func (s *mediaOrphanRepoImpl) Record(ctx context.Context, externalID string) error {
	data, err := json.Marshal(orphanMeta{CreatedAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	return redis.HSet(ctx, consts.IMMediaOrphanKey, externalID, string(data))
}

func (s *mediaOrphanRepoImpl) List(ctx context.Context) (map[string]time.Time, error) {
	all, err := redis.HGetAll(ctx, consts.IMMediaOrphanKey)
	if err != nil {
		return nil, err
	}

	res := make(map[string]time.Time, len(all))
	for externalID, val := range all {
		var meta orphanMeta
		if err = json.Unmarshal([]byte(val), &meta); err != nil {
			log.WarnContext(ctx, "invalid orphan media meta", "external_id", externalID)
			res[externalID] = time.Time{}
			continue
		}
		res[externalID] = time.Unix(meta.CreatedAt, 0)
	}
	return res, nil
}

func (s *mediaOrphanRepoImpl) Remove(ctx context.Context, externalID string) error {
	return redis.HDel(ctx, consts.IMMediaOrphanKey, externalID)
}
