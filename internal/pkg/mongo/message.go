package mongo

import (
	"time"
)

const MessageCollection = "messages"

// Message MongoDB 消息明细，写入后不再修改
type Message struct {
	ID         string            `bson:"_id" json:"id"`
	SenderID   uint64            `bson:"sender_id" json:"senderId"`
	ReceiverID uint64            `bson:"receiver_id" json:"receiverId"`
	ListingID  *uint64           `bson:"listing_id" json:"listingId"` // 房源不存在时为 null
	Content    string            `bson:"content" json:"content"`
	Media      []MediaAttachment `bson:"media" json:"messageMedia"`
	VoiceNote  *MediaAttachment  `bson:"voice_note,omitempty" json:"voiceNote"`
	CreatedAt  time.Time         `bson:"created_at" json:"createdAt"`
}

// MediaAttachment 媒体引用；ExternalID 为空表示外部透传资源，不归本系统管理
type MediaAttachment struct {
	URL        string  `bson:"url" json:"url"`
	ExternalID *string `bson:"external_id" json:"externalId"`
}

// Counterpart 返回消息中 userID 的对方
func (m *Message) Counterpart(userID uint64) uint64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
