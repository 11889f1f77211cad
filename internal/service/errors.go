package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
	BadGateway          = 502
)

var (
	ErrParamInvalid     = errors.New("参数错误")
	ErrReceiverNotFound = errors.New("接收者不存在")
	ErrMediaUpstream    = errors.New("媒体上传失败，请稍后重试")
	ErrFileNotSupported = errors.New("不支持的文件类型")
	ErrEventUnknown     = errors.New("未知事件")
	ErrIdentityMismatch = errors.New("身份与连接不一致")
	UnauthorizedError   = errors.New("权限不足")
	UnExpectedError     = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:     BadRequest,
	ErrReceiverNotFound: NotFound,
	ErrMediaUpstream:    BadGateway,
	ErrFileNotSupported: BadRequest,
	ErrEventUnknown:     BadRequest,
	ErrIdentityMismatch: Unauthorized,
	UnauthorizedError:   Unauthorized,
	UnExpectedError:     InternalServerError,
}

// Classify 在 err 链上查找已知业务错误，返回业务码与对外文案
func Classify(err error) (int, string, bool) {
	for known, code := range ErrorMap {
		if errors.Is(err, known) {
			return code, known.Error(), true
		}
	}
	return 0, "", false
}
