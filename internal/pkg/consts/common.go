package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

const (
	ChatScopeAll   = "all"
	ChatScopeOwner = "owner"
	ChatScopeGuest = "guest"
)

// 上下文 / gin.Keys 中的当前用户
const (
	UserIDKey = "user_id"
)
