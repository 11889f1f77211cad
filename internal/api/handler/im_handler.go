package handler

import (
	"OurSpace/internal/api/dto"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/pkg/response"
	"OurSpace/internal/pkg/util"
	"OurSpace/internal/realtime"
	"OurSpace/internal/service"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	imService service.IMService
	presence  *realtime.Presence
}

func NewIMHandler(imService service.IMService, presence *realtime.Presence) *IMHandler {
	return &IMHandler{imService: imService, presence: presence}
}

// SendMessage 发送消息接口（multipart：receiver、listing、content、media[]、voiceNote）
func (s *IMHandler) SendMessage(c *gin.Context) {
	senderID := c.GetUint64(consts.UserIDKey)

	form, err := c.MultipartForm()
	if err != nil {
		if !strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		if err = c.Request.ParseForm(); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		form = &multipart.Form{Value: c.Request.PostForm}
	}

	req, closers, err := buildSendMessageReq(form)
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := s.imService.SendMessage(c.Request.Context(), senderID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversationList 获取会话列表，scope = all / owner / guest
func (s *IMHandler) GetConversationList(c *gin.Context) {
	userID := c.GetUint64(consts.UserIDKey)

	var query dto.ChatListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", service.ErrParamInvalid, err))
		return
	}
	if query.Scope == "" {
		query.Scope = consts.ChatScopeAll
	}

	res, err := s.imService.GetConversationSummaries(c.Request.Context(), userID, query.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversation 获取与某人在某个房源下的完整对话
func (s *IMHandler) GetConversation(c *gin.Context) {
	userID := c.GetUint64(consts.UserIDKey)

	var query dto.ConversationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", service.ErrParamInvalid, err))
		return
	}

	res, err := s.imService.GetConversation(c.Request.Context(), query.ListingID, userID, query.With)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetPresence 当前在线列表
func (s *IMHandler) GetPresence(c *gin.Context) {
	response.Success(c, s.presence.Snapshot())
}

func buildSendMessageReq(form *multipart.Form) (*dto.SendMessageReq, []io.Closer, error) {
	closers := make([]io.Closer, 0)
	req := &dto.SendMessageReq{
		Content: formValue(form, "content"),
		Media:   make([]*dto.MediaUpload, 0),
	}

	receiverID, err := strconv.ParseUint(formValue(form, "receiver"), 10, 64)
	if err != nil {
		return nil, closers, service.ErrParamInvalid
	}
	req.ReceiverID = receiverID

	if raw := formValue(form, "listing"); raw != "" {
		listingID, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return nil, closers, service.ErrParamInvalid
		}
		req.ListingID = util.PtrUint64(listingID)
	}

	// 已托管的远程地址作为文本字段传入
	for _, ref := range append(form.Value["media[]"], form.Value["media"]...) {
		item, perr := util.ParseMediaRef(ref)
		if perr != nil {
			return nil, closers, service.ErrParamInvalid
		}
		req.Media = append(req.Media, item)
	}

	for _, fh := range append(form.File["media[]"], form.File["media"]...) {
		item, f, oerr := openUpload(fh)
		if f != nil {
			closers = append(closers, f)
		}
		if oerr != nil {
			return nil, closers, oerr
		}
		req.Media = append(req.Media, item)
	}

	if files := form.File["voiceNote"]; len(files) > 0 {
		item, f, oerr := openUpload(files[0])
		if f != nil {
			closers = append(closers, f)
		}
		if oerr != nil {
			return nil, closers, oerr
		}
		req.VoiceNote = item
	} else if ref := formValue(form, "voiceNote"); ref != "" {
		item, perr := util.ParseMediaRef(ref)
		if perr != nil {
			return nil, closers, service.ErrParamInvalid
		}
		req.VoiceNote = item
	}

	return req, closers, nil
}

func openUpload(fh *multipart.FileHeader) (*dto.MediaUpload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, service.ErrParamInvalid
	}

	contentType, err := util.DetectContentType(f)
	if err != nil {
		return nil, f, service.ErrParamInvalid
	}
	if !util.IsMediaType(contentType) {
		return nil, f, service.ErrFileNotSupported
	}

	return &dto.MediaUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Reader:      f,
	}, f, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
