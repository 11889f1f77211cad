package repository

import (
	"OurSpace/internal/model"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"
)

const directoryCacheTTL = 10 * time.Minute

// UserRepo 消息服务使用的用户目录：存在性校验与会话列表展示信息
type UserRepo interface {
	ExistsByID(ctx context.Context, id uint64) (bool, error)
	GetProfiles(ctx context.Context, ids []uint64) (map[uint64]*model.User, error)
	Invalidate(ctx context.Context, ids ...uint64) error
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepoImpl{db: db}
}

// ExistsByID 先查 Redis 缓存（"1"/"0"），未命中再查库并回填；缓存故障降级为直接查库
func (s *userRepoImpl) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	key := consts.IMUserExistsKey + strconv.FormatUint(id, 10)

	cached, err := redis.GetValue(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "user exists cache read failed", "user_id", id, "err", err)
	} else if cached != "" {
		return cached == "1", nil
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND is_delete = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	exists := count > 0
	if err = redis.SetWithExpiration(ctx, key, boolFlag(exists), directoryCacheTTL); err != nil {
		log.WarnContext(ctx, "user exists cache write failed", "user_id", id, "err", err)
	}
	return exists, nil
}

// GetProfiles 批量取展示信息，不存在的用户不出现在结果中
func (s *userRepoImpl) GetProfiles(ctx context.Context, ids []uint64) (map[uint64]*model.User, error) {
	res := make(map[uint64]*model.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	users := make([]*model.User, 0, len(ids))
	err := s.db.WithContext(ctx).
		Select("id", "first_name", "last_name", "profile_pic").
		Where("id IN ? AND is_delete = ?", ids, false).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		res[u.ID] = u
	}
	return res, nil
}

// Invalidate 清除存在性缓存，CDC 消费者在 users 表变更时调用
func (s *userRepoImpl) Invalidate(ctx context.Context, ids ...uint64) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, consts.IMUserExistsKey+strconv.FormatUint(id, 10))
	}
	return redis.DeleteKey(ctx, keys...)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
