package realtime

import (
	"OurSpace/internal/api/dto"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/response"
	"OurSpace/internal/pkg/util"
	"OurSpace/internal/service"
	"context"
	"fmt"
	log "log/slog"
	"runtime/debug"
	"time"

	"github.com/goccy/go-json"
)

type handlerFunc func(ctx context.Context, s *Session, data json.RawMessage) error

// Dispatcher 解析入站事件，调用在线列表 / 消息服务，并把结果投递到会话或房间
type Dispatcher struct {
	registry  *Registry
	router    *Router
	presence  *Presence
	imService service.IMService
	handlers  map[string]handlerFunc
}

func NewDispatcher(registry *Registry, router *Router, presence *Presence, imService service.IMService) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		router:    router,
		presence:  presence,
		imService: imService,
	}
	d.handlers = map[string]handlerFunc{
		consts.EventJoin:          d.handleJoin,
		consts.EventNewUser:       d.handleNewUser,
		consts.EventTyping:        d.handleTyping,
		consts.EventSendMessage:   d.handleSendMessage,
		consts.EventConversations: d.handleConversations,
		consts.EventOwnerChats:    d.chatListHandler(consts.EventOwnerChats, consts.ChatScopeOwner),
		consts.EventUserChats:     d.chatListHandler(consts.EventUserChats, consts.ChatScopeGuest),
		consts.EventPing:          d.handlePing,
	}
	return d
}

// Connect 注册新会话
func (d *Dispatcher) Connect(principal uint64) *Session {
	s := d.registry.Register(principal)
	log.Info("session connected", "session_id", s.ID, "principal", principal, "online", d.registry.Count())
	return s
}

// Disconnect 注销会话，房间与在线列表由注销回调清理
func (d *Dispatcher) Disconnect(s *Session) {
	d.registry.Deregister(s.ID)
	log.Info("session disconnected", "session_id", s.ID, "user_id", s.UserID(), "online", d.registry.Count())
}

// Handle 处理一帧入站事件；任何失败只回复给当前会话，不影响连接与其他会话
func (d *Dispatcher) Handle(ctx context.Context, s *Session, frame []byte) {
	env, err := Decode(frame)
	if err != nil {
		d.replyError(ctx, s, "", fmt.Errorf("%w: %v", service.ErrParamInvalid, err))
		return
	}

	h, ok := d.handlers[env.Event]
	if !ok {
		d.replyError(ctx, s, env.Event, service.ErrEventUnknown)
		return
	}

	if err = d.run(ctx, s, env.Event, h, env.Data); err != nil {
		d.replyError(ctx, s, env.Event, err)
	}
}

func (d *Dispatcher) run(ctx context.Context, s *Session, event string, h handlerFunc, data json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "event handler panicked",
				"event", event,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = service.UnExpectedError
		}
	}()
	return h(ctx, s, data)
}

func (d *Dispatcher) handleJoin(_ context.Context, s *Session, data json.RawMessage) error {
	var p joinPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	return d.identify(s, uint64(p.UserID))
}

func (d *Dispatcher) handleNewUser(_ context.Context, s *Session, data json.RawMessage) error {
	var p newUserPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	userID := uint64(p.UserID)
	if err := d.identify(s, userID); err != nil {
		return err
	}

	d.presence.Announce(PresenceEntry{
		UserID:    userID,
		SessionID: s.ID,
		UserName:  p.UserName,
		Display:   p.Display,
	})
	return nil
}

// identify 绑定用户并加入以用户 ID 为键的房间；鉴权连接只能绑定自己
func (d *Dispatcher) identify(s *Session, userID uint64) error {
	if userID == 0 {
		return service.ErrParamInvalid
	}
	if p := s.Principal(); p != 0 && p != userID {
		return service.ErrIdentityMismatch
	}
	if bound := s.UserID(); bound != 0 && bound != userID {
		return service.ErrIdentityMismatch
	}
	s.bind(userID)
	d.router.Join(s.ID, util.FormatID(userID))
	return nil
}

// handleTyping 不落库，只投递到接收者房间
func (d *Dispatcher) handleTyping(_ context.Context, _ *Session, data json.RawMessage) error {
	var p typingPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	d.router.EmitToRoom(util.FormatID(uint64(p.ReceiverID)), consts.EventTypingResponse, p.SenderName+" is typing...")
	return nil
}

// handleSendMessage 成功后 message-response 回给当前会话，new_message 由消息服务投递到接收者房间
func (d *Dispatcher) handleSendMessage(ctx context.Context, s *Session, data json.RawMessage) error {
	var p sendMessagePayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}

	senderID, err := resolveIdentity(s, uint64(p.Sender))
	if err != nil {
		return err
	}

	req := &dto.SendMessageReq{
		ReceiverID: uint64(p.ReceiverID),
		ListingID:  p.ListingID.ptr(),
		Content:    p.Content,
		Media:      make([]*dto.MediaUpload, 0, len(p.Media)),
	}
	for _, ref := range p.Media {
		item, perr := util.ParseMediaRef(ref)
		if perr != nil {
			return fmt.Errorf("%w: %v", service.ErrParamInvalid, perr)
		}
		req.Media = append(req.Media, item)
	}
	if p.VoiceNote != "" {
		if req.VoiceNote, err = util.ParseMediaRef(p.VoiceNote); err != nil {
			return fmt.Errorf("%w: %v", service.ErrParamInvalid, err)
		}
	}

	msg, err := d.imService.SendMessage(ctx, senderID, req)
	if err != nil {
		return err
	}
	d.reply(ctx, s, consts.EventMessageResponse, msg)
	return nil
}

func (d *Dispatcher) handleConversations(ctx context.Context, s *Session, data json.RawMessage) error {
	var p conversationsPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	userID, err := resolveIdentity(s, uint64(p.UserID))
	if err != nil {
		return err
	}

	list, err := d.imService.GetConversation(ctx, p.ListingID.ptr(), userID, uint64(p.CounterpartID))
	if err != nil {
		return err
	}
	d.reply(ctx, s, consts.EventConversations, list)
	return nil
}

func (d *Dispatcher) chatListHandler(event, scope string) handlerFunc {
	return func(ctx context.Context, s *Session, data json.RawMessage) error {
		var p chatListPayload
		if err := decodePayload(data, &p); err != nil {
			return err
		}
		userID, err := resolveIdentity(s, uint64(p.UserID))
		if err != nil {
			return err
		}

		list, err := d.imService.GetConversationSummaries(ctx, userID, scope)
		if err != nil {
			return err
		}
		d.reply(ctx, s, event, list)
		return nil
	}
}

func (d *Dispatcher) handlePing(ctx context.Context, s *Session, _ json.RawMessage) error {
	d.reply(ctx, s, consts.EventPong, pongPayload{Time: time.Now().UnixMilli()})
	return nil
}

func (d *Dispatcher) reply(ctx context.Context, s *Session, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		log.ErrorContext(ctx, "encode reply failed", "event", event, "err", err)
		return
	}
	if !d.registry.Deliver(s, frame) {
		log.WarnContext(ctx, "reply dropped", "event", event)
	}
}

func (d *Dispatcher) replyError(ctx context.Context, s *Session, event string, err error) {
	code, message := response.Resolve(err)
	if code == response.InternalServerError {
		log.ErrorContext(ctx, "event failed", "event", event, "err", err)
	} else {
		log.WarnContext(ctx, "event rejected", "event", event, "code", code, "err", err)
	}
	d.reply(ctx, s, consts.EventError, errorPayload{Event: event, Code: code, Message: message})
}

// resolveIdentity 载荷中的用户 ID 缺省取会话身份，二者都存在时必须一致
func resolveIdentity(s *Session, claimed uint64) (uint64, error) {
	identity := s.Identity()
	switch {
	case claimed == 0 && identity == 0:
		return 0, service.ErrParamInvalid
	case claimed == 0:
		return identity, nil
	case identity != 0 && identity != claimed:
		return 0, service.ErrIdentityMismatch
	default:
		return claimed, nil
	}
}

func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return service.ErrParamInvalid
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrParamInvalid, err)
	}
	if err := util.Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrParamInvalid, err)
	}
	return nil
}
