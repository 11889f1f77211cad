package realtime

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Envelope 长连接上的单个事件帧
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode 编码出站事件
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode 解析入站事件帧
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	if env.Event == "" {
		return nil, fmt.Errorf("missing event name")
	}
	return &env, nil
}

// FlexID 兼容数字与字符串两种写法的用户 / 房源 ID
type FlexID uint64

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		*f = FlexID(n)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n)
	return nil
}

func (f *FlexID) ptr() *uint64 {
	if f == nil || *f == 0 {
		return nil
	}
	v := uint64(*f)
	return &v
}

// joinPayload join 事件既可直接发送用户 ID，也可发送 {"userId": ...}
type joinPayload struct {
	UserID FlexID `json:"userId" validate:"required"`
}

func (p *joinPayload) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type plain joinPayload
		return json.Unmarshal(trimmed, (*plain)(p))
	}
	return json.Unmarshal(trimmed, &p.UserID)
}

// PresenceEntry 在线列表中的一项，同一用户多端在线会出现多条
type PresenceEntry struct {
	UserID    uint64            `json:"userId"`
	SessionID string            `json:"socketID"`
	UserName  string            `json:"userName,omitempty"`
	Display   map[string]string `json:"display,omitempty"`
}

type newUserPayload struct {
	UserID   FlexID            `json:"userId" validate:"required"`
	UserName string            `json:"userName" validate:"max=100"`
	Display  map[string]string `json:"display" validate:"max=16"`
}

type typingPayload struct {
	SenderName string `json:"senderName" validate:"required,max=100"`
	ReceiverID FlexID `json:"receiverId" validate:"required"`
}

type sendMessagePayload struct {
	Sender     FlexID   `json:"sender"`
	ListingID  *FlexID  `json:"listingId"`
	Content    string   `json:"content" validate:"max=4000"`
	ReceiverID FlexID   `json:"receiverId" validate:"required"`
	Media      []string `json:"media" validate:"max=10,dive,required"`
	VoiceNote  string   `json:"voiceNote"`
}

type conversationsPayload struct {
	ListingID     *FlexID `json:"listingId"`
	UserID        FlexID  `json:"userId"`
	CounterpartID FlexID  `json:"counterpartId" validate:"required"`
}

type chatListPayload struct {
	UserID FlexID `json:"userId"`
}

type errorPayload struct {
	Event   string `json:"event"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type pongPayload struct {
	Time int64 `json:"time"`
}
