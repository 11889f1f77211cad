package service

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/api/dto"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/mongo"
	"OurSpace/internal/pkg/util"
	"OurSpace/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

const compensateTimeout = 5 * time.Second

// MediaStore 媒体 / 语音对象存储
type MediaStore interface {
	Upload(ctx context.Context, folder string, item *dto.MediaUpload) (*dto.MediaAttachmentDTO, error)
	Delete(ctx context.Context, externalID string) error
}

// Broadcaster 按房间（用户 ID）投递实时事件，尽力而为
type Broadcaster interface {
	EmitToRoom(roomKey string, event string, payload any)
}

// IMService 即时通讯服务接口定义
type IMService interface {
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetConversation(ctx context.Context, listingID *uint64, userA, userB uint64) ([]*dto.MessageDTO, error)
	GetConversationSummaries(ctx context.Context, userID uint64, scope string) ([]*dto.ConversationSummaryDTO, error)
}

type imServiceImpl struct {
	cfg         config.IMConfig
	userRepo    repository.UserRepo
	listingRepo repository.ListingRepo
	orphanRepo  repository.MediaOrphanRepo
	messageRepo mongo.MessageRepo
	mediaStore  MediaStore
	broadcaster Broadcaster
}

func NewIMService(
	cfg config.IMConfig,
	userRepo repository.UserRepo,
	listingRepo repository.ListingRepo,
	orphanRepo repository.MediaOrphanRepo,
	messageRepo mongo.MessageRepo,
	mediaStore MediaStore,
	broadcaster Broadcaster,
) IMService {
	return &imServiceImpl{
		cfg:         cfg,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		orphanRepo:  orphanRepo,
		messageRepo: messageRepo,
		mediaStore:  mediaStore,
		broadcaster: broadcaster,
	}
}

// SendMessage 校验接收者 -> 解析房源 -> 并发上传媒体 -> 落库 -> 推送给接收者房间
func (s *imServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if senderID == 0 || req == nil || req.IsEmpty() {
		return nil, ErrParamInvalid
	}
	if err := util.ValidateDTO(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParamInvalid, err)
	}

	exists, err := s.userRepo.ExistsByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("check receiver: %w", err)
	}
	if !exists {
		return nil, ErrReceiverNotFound
	}

	listingID := s.resolveListing(ctx, req.ListingID)

	media, voice, err := s.uploadAll(ctx, req)
	if err != nil {
		return nil, err
	}

	msg := &mongo.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		ListingID:  listingID,
		Content:    req.Content,
		Media:      media,
		VoiceNote:  voice,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	// 发送方断开不影响已开始的落库
	writeCtx, cancel := withTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	if err = s.messageRepo.SaveMessage(writeCtx, msg); err != nil {
		s.compensate(ctx, ownedObjects(media, voice))
		return nil, fmt.Errorf("save message: %w", err)
	}

	res := toMessageDTO(msg)
	s.broadcaster.EmitToRoom(util.FormatID(req.ReceiverID), consts.EventNewMessage, res)

	log.InfoContext(ctx, "message sent",
		"message_id", msg.ID,
		"sender_id", senderID,
		"receiver_id", req.ReceiverID,
		"media", len(media),
		"voice", voice != nil,
	)
	return res, nil
}

// GetConversation 两人在同一房源下的对话，按时间升序
func (s *imServiceImpl) GetConversation(ctx context.Context, listingID *uint64, userA, userB uint64) ([]*dto.MessageDTO, error) {
	if userA == 0 || userB == 0 {
		return nil, ErrParamInvalid
	}

	models, err := s.messageRepo.GetConversation(ctx, listingID, userA, userB)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(models, func(i, j int) bool {
		return models[i].CreatedAt.Before(models[j].CreatedAt)
	})

	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

// GetConversationSummaries 每个对方保留最近一条消息，按该消息时间倒序
func (s *imServiceImpl) GetConversationSummaries(ctx context.Context, userID uint64, scope string) ([]*dto.ConversationSummaryDTO, error) {
	if userID == 0 {
		return nil, ErrParamInvalid
	}
	if scope == "" {
		scope = consts.ChatScopeAll
	}

	var keep func(m *mongo.Message) bool
	switch scope {
	case consts.ChatScopeAll:
		keep = func(*mongo.Message) bool { return true }
	case consts.ChatScopeOwner, consts.ChatScopeGuest:
		ids, err := s.listingRepo.ListIDsByOwner(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list owned listings: %w", err)
		}
		owned := make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			owned[id] = struct{}{}
		}
		wantOwned := scope == consts.ChatScopeOwner
		keep = func(m *mongo.Message) bool {
			if m.ListingID == nil {
				return !wantOwned
			}
			_, ok := owned[*m.ListingID]
			return ok == wantOwned
		}
	default:
		return nil, ErrParamInvalid
	}

	models, err := s.messageRepo.GetByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uint64]*mongo.Message)
	for _, m := range models {
		if !keep(m) {
			continue
		}
		peer := m.Counterpart(userID)
		if cur, ok := latest[peer]; !ok || m.CreatedAt.After(cur.CreatedAt) {
			latest[peer] = m
		}
	}

	peers := make([]uint64, 0, len(latest))
	for peer := range latest {
		peers = append(peers, peer)
	}
	sort.Slice(peers, func(i, j int) bool {
		a, b := latest[peers[i]].CreatedAt, latest[peers[j]].CreatedAt
		if a.Equal(b) {
			return peers[i] < peers[j]
		}
		return a.After(b)
	})

	profiles, err := s.userRepo.GetProfiles(ctx, peers)
	if err != nil {
		log.WarnContext(ctx, "load counterpart profiles failed", "user_id", userID, "err", err)
	}

	res := make([]*dto.ConversationSummaryDTO, 0, len(peers))
	for _, peer := range peers {
		m := latest[peer]
		item := &dto.ConversationSummaryDTO{
			CounterpartID:        peer,
			LastMessage:          toMessageDTO(m),
			LastMessageTimestamp: m.CreatedAt,
		}
		if u, ok := profiles[peer]; ok {
			item.Counterpart = &dto.CounterpartDTO{}
			_ = copier.Copy(item.Counterpart, u)
		}
		res = append(res, item)
	}
	return res, nil
}

// resolveListing 房源不存在或查询失败时置空，不影响发送
func (s *imServiceImpl) resolveListing(ctx context.Context, listingID *uint64) *uint64 {
	if listingID == nil {
		return nil
	}
	ok, err := s.listingRepo.ExistsByID(ctx, *listingID)
	if err != nil {
		log.WarnContext(ctx, "resolve listing failed, stored as null", "listing_id", *listingID, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return util.PtrUint64(*listingID)
}

// uploadAll 并发上传全部媒体与语音，任一失败则删除已上传对象并返回 ErrMediaUpstream
// 上传沿用调用方 ctx：请求方在上传阶段断开即放弃本次发送，只有已开始的落库才脱离 ctx
func (s *imServiceImpl) uploadAll(ctx context.Context, req *dto.SendMessageReq) ([]mongo.MediaAttachment, *mongo.MediaAttachment, error) {
	uploadCtx, cancel := withTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	media := make([]*dto.MediaAttachmentDTO, len(req.Media))
	var voice *dto.MediaAttachmentDTO

	g, gctx := errgroup.WithContext(uploadCtx)
	for i, item := range req.Media {
		g.Go(func() error {
			att, err := s.upload(gctx, s.cfg.MediaFolder, item)
			if err != nil {
				return err
			}
			media[i] = att
			return nil
		})
	}
	if req.VoiceNote != nil {
		g.Go(func() error {
			att, err := s.upload(gctx, s.cfg.VoiceFolder, req.VoiceNote)
			if err != nil {
				return err
			}
			voice = att
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		uploaded := make([]*dto.MediaAttachmentDTO, 0, len(media)+1)
		uploaded = append(uploaded, media...)
		uploaded = append(uploaded, voice)
		s.compensate(ctx, ownedDTOObjects(uploaded))
		log.WarnContext(ctx, "media upload failed, message aborted", "err", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrMediaUpstream, err)
	}

	res := make([]mongo.MediaAttachment, 0, len(media))
	for _, att := range media {
		res = append(res, mongo.MediaAttachment{URL: att.URL, ExternalID: att.ExternalID})
	}
	var voiceRes *mongo.MediaAttachment
	if voice != nil {
		voiceRes = &mongo.MediaAttachment{URL: voice.URL, ExternalID: voice.ExternalID}
	}
	return res, voiceRes, nil
}

func (s *imServiceImpl) upload(ctx context.Context, folder string, item *dto.MediaUpload) (*dto.MediaAttachmentDTO, error) {
	if item.IsPassthrough() {
		return &dto.MediaAttachmentDTO{URL: item.URL}, nil
	}
	att, err := s.mediaStore.Upload(ctx, folder, item)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, fmt.Errorf("media store returned no attachment")
	}
	return att, nil
}

// compensate 删除本次已上传的对象，删除失败的登记到孤儿表由定时任务清理
func (s *imServiceImpl) compensate(ctx context.Context, externalIDs []string) {
	if len(externalIDs) == 0 {
		return
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	for _, id := range externalIDs {
		err := s.mediaStore.Delete(bg, id)
		if err == nil {
			continue
		}
		log.WarnContext(ctx, "compensating media delete failed", "external_id", id, "err", err)
		if err = s.orphanRepo.Record(bg, id); err != nil {
			log.ErrorContext(ctx, "record orphan media failed", "external_id", id, "err", err)
		}
	}
}

func ownedObjects(media []mongo.MediaAttachment, voice *mongo.MediaAttachment) []string {
	ids := make([]string, 0, len(media)+1)
	for _, m := range media {
		if m.ExternalID != nil {
			ids = append(ids, *m.ExternalID)
		}
	}
	if voice != nil && voice.ExternalID != nil {
		ids = append(ids, *voice.ExternalID)
	}
	return ids
}

func ownedDTOObjects(atts []*dto.MediaAttachmentDTO) []string {
	ids := make([]string, 0, len(atts))
	for _, att := range atts {
		if att != nil && att.ExternalID != nil {
			ids = append(ids, *att.ExternalID)
		}
	}
	return ids
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	out := &dto.MessageDTO{}
	_ = copier.Copy(out, m)

	out.Media = make([]dto.MediaAttachmentDTO, 0, len(m.Media))
	for _, att := range m.Media {
		out.Media = append(out.Media, dto.MediaAttachmentDTO{URL: att.URL, ExternalID: att.ExternalID})
	}
	out.VoiceNote = nil
	if m.VoiceNote != nil {
		out.VoiceNote = &dto.MediaAttachmentDTO{URL: m.VoiceNote.URL, ExternalID: m.VoiceNote.ExternalID}
	}
	return out
}
