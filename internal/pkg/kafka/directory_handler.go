package kafka

import (
	"OurSpace/internal/pkg/util"
	"OurSpace/internal/repository"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

const (
	usersTable    = "users"
	listingsTable = "listings"
)

// DirectoryHandler 消费 users / listings 表的 CDC，失效消息服务使用的目录缓存
type DirectoryHandler struct {
	userRepo    repository.UserRepo
	listingRepo repository.ListingRepo
}

func NewDirectoryHandler(userRepo repository.UserRepo, listingRepo repository.ListingRepo) *DirectoryHandler {
	return &DirectoryHandler{
		userRepo:    userRepo,
		listingRepo: listingRepo,
	}
}

func (s *DirectoryHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("directory consumer setup")
	return nil
}

func (s *DirectoryHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("directory consumer cleanup")
	return nil
}

func (s *DirectoryHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("directory consume claim", "topic", claim.Topic(), "partition", claim.Partition())
	return pullMessageBatch(session, claim, s.logic)
}

func (s *DirectoryHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, usersTable, listingsTable)
	if err != nil {
		return err
	}

	switch canalMsg.Table {
	case usersTable:
		return s.invalidateUsers(ctx, canalMsg)
	default:
		return s.invalidateListings(ctx, canalMsg)
	}
}

func (s *DirectoryHandler) invalidateUsers(ctx context.Context, canalMsg *CanalMessage) error {
	ids := make([]uint64, 0, len(canalMsg.Data))
	for _, row := range canalMsg.Data {
		if id := util.StrToUint64(row["id"]); id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.userRepo.Invalidate(ctx, ids...)
}

// invalidateListings 房源易主时新旧房东的房源列表都要失效
func (s *DirectoryHandler) invalidateListings(ctx context.Context, canalMsg *CanalMessage) error {
	for i, row := range canalMsg.Data {
		listingID := util.StrToUint64(row["id"])
		if listingID == 0 {
			continue
		}

		owners := make([]uint64, 0, 2)
		if owner := util.StrToUint64(row["user_id"]); owner != 0 {
			owners = append(owners, owner)
		}
		if old, ok := canalMsg.OldValue(i, "user_id"); ok {
			if prev := util.StrToUint64(old); prev != 0 {
				owners = append(owners, prev)
			}
		}

		if err := s.listingRepo.Invalidate(ctx, listingID, owners...); err != nil {
			return err
		}
	}
	return nil
}
