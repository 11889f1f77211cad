package dto

import (
	"io"
	"strings"
	"time"
)

// MediaUpload 一条待发送的媒体；URL 非空时为已托管在外部的资源，直接透传
type MediaUpload struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// IsPassthrough 是否为外部 http(s) 资源
func (m *MediaUpload) IsPassthrough() bool {
	return strings.HasPrefix(m.URL, "http://") || strings.HasPrefix(m.URL, "https://")
}

// SendMessageReq 发送消息请求（HTTP multipart 与长连接 send-message 共用）
type SendMessageReq struct {
	ReceiverID uint64         `validate:"required"`
	ListingID  *uint64        `validate:"omitempty,gt=0"`
	Content    string         `validate:"max=4000"`
	Media      []*MediaUpload `validate:"max=10,dive,required"`
	VoiceNote  *MediaUpload
}

// IsEmpty 文本、媒体、语音都没有
func (r *SendMessageReq) IsEmpty() bool {
	return strings.TrimSpace(r.Content) == "" && len(r.Media) == 0 && r.VoiceNote == nil
}

// MediaAttachmentDTO 媒体引用，ExternalID 为空表示透传资源
type MediaAttachmentDTO struct {
	URL        string  `json:"url"`
	ExternalID *string `json:"externalId"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID         string               `json:"id"`
	SenderID   uint64               `json:"senderId"`
	ReceiverID uint64               `json:"receiverId"`
	ListingID  *uint64              `json:"listingId"`
	Content    string               `json:"content"`
	Media      []MediaAttachmentDTO `json:"messageMedia"`
	VoiceNote  *MediaAttachmentDTO  `json:"voiceNote"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// CounterpartDTO 会话对方的展示信息
type CounterpartDTO struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ProfilePic string `json:"profilePic"`
}

// ConversationSummaryDTO 会话列表项，每个对方一条，取最近一条消息
type ConversationSummaryDTO struct {
	CounterpartID        uint64          `json:"counterpartId"`
	Counterpart          *CounterpartDTO `json:"counterpart"`
	LastMessage          *MessageDTO     `json:"lastMessage"`
	LastMessageTimestamp time.Time       `json:"lastMessageTimestamp"`
}

// ConversationQuery 拉取两人在某个房源下的完整对话
type ConversationQuery struct {
	ListingID *uint64 `form:"listingId" binding:"omitempty,gt=0"`
	With      uint64  `form:"with" binding:"required"`
}

// ChatListQuery 会话列表范围：all / owner（我发布的房源）/ guest（我咨询的房源）
type ChatListQuery struct {
	Scope string `form:"scope" binding:"omitempty,oneof=all owner guest"`
}
