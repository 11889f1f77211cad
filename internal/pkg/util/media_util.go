package util

import (
	"OurSpace/internal/api/dto"
	"OurSpace/internal/pkg/consts"
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data url")

// ParseMediaRef 解析长连接中的媒体引用：http(s) 地址透传，data:<mime>;base64,<payload> 解码为待上传内容
func ParseMediaRef(ref string) (*dto.MediaUpload, error) {
	ref = strings.TrimSpace(ref)
	item := &dto.MediaUpload{URL: ref}
	if item.IsPassthrough() {
		return item, nil
	}

	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidDataURL
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, ErrInvalidDataURL
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidDataURL
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &dto.MediaUpload{
		ContentType: contentType,
		Size:        int64(len(raw)),
		Reader:      bytes.NewReader(raw),
	}, nil
}

// DetectContentType 读取文件头嗅探 MIME 类型并回退读取位置
func DetectContentType(r io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// IsMediaType 图片 / 视频 / 音频
func IsMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, consts.MimePrefixImage) ||
		strings.HasPrefix(contentType, consts.MimePrefixVideo) ||
		strings.HasPrefix(contentType, consts.MimePrefixAudio)
}
