package repository

import (
	"OurSpace/internal/model"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"

	"gorm.io/gorm"
)

// ListingRepo 房源目录：存在性校验与房东名下房源
type ListingRepo interface {
	ExistsByID(ctx context.Context, id uint64) (bool, error)
	ListIDsByOwner(ctx context.Context, ownerID uint64) ([]uint64, error)
	Invalidate(ctx context.Context, listingID uint64, ownerIDs ...uint64) error
}

type listingRepoImpl struct {
	db *gorm.DB
}

func NewListingRepo(db *gorm.DB) ListingRepo {
	return &listingRepoImpl{db: db}
}

func (s *listingRepoImpl) ExistsByID(ctx context.Context, id uint64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	key := consts.IMListingExistsKey + strconv.FormatUint(id, 10)

	cached, err := redis.GetValue(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "listing exists cache read failed", "listing_id", id, "err", err)
	} else if cached != "" {
		return cached == "1", nil
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND is_delete = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	exists := count > 0
	if err = redis.SetWithExpiration(ctx, key, boolFlag(exists), directoryCacheTTL); err != nil {
		log.WarnContext(ctx, "listing exists cache write failed", "listing_id", id, "err", err)
	}
	return exists, nil
}

// ListIDsByOwner 房东名下全部房源 ID，缓存为 Redis 列表
func (s *listingRepoImpl) ListIDsByOwner(ctx context.Context, ownerID uint64) ([]uint64, error) {
	key := consts.IMListingOwnerKey + strconv.FormatUint(ownerID, 10)

	cached, err := redis.GetList(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "owner listings cache read failed", "owner_id", ownerID, "err", err)
	} else if len(cached) > 0 {
		ids := make([]uint64, 0, len(cached))
		for _, v := range cached {
			if id, perr := strconv.ParseUint(v, 10, 64); perr == nil {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	ids := make([]uint64, 0)
	err = s.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("user_id = ? AND is_delete = ?", ownerID, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.FormatUint(id, 10))
	}
	if err = redis.SetListWithExpiration(ctx, key, values, directoryCacheTTL); err != nil {
		log.WarnContext(ctx, "owner listings cache write failed", "owner_id", ownerID, "err", err)
	}
	return ids, nil
}

// Invalidate 清除房源存在性缓存及相关房东的房源列表缓存
func (s *listingRepoImpl) Invalidate(ctx context.Context, listingID uint64, ownerIDs ...uint64) error {
	keys := []string{consts.IMListingExistsKey + strconv.FormatUint(listingID, 10)}
	for _, ownerID := range ownerIDs {
		keys = append(keys, consts.IMListingOwnerKey+strconv.FormatUint(ownerID, 10))
	}
	return redis.DeleteKey(ctx, keys...)
}
