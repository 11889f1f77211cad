package consts

// 长连接入站事件
const (
	EventJoin          = "join"
	EventNewUser       = "newUser"
	EventTyping        = "typing"
	EventSendMessage   = "send-message"
	EventConversations = "conversations"
	EventOwnerChats    = "so-get-all-chats"
	EventUserChats     = "su-get-all-chats"
	EventPing          = "ping"
	EventDisconnect    = "disconnect"
)

// 长连接出站事件
const (
	EventNewUserResponse = "newUserResponse"
	EventTypingResponse  = "typing-response"
	EventMessageResponse = "message-response"
	EventNewMessage      = "new_message"
	EventPong            = "pong"
	EventError           = "error"
)
