package minio

import (
	"OurSpace/internal/api/dto"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaStore 消息媒体 / 语音的对象存储实现
type MediaStore struct {
	externalEndpoint string
}

func NewMediaStore(externalEndpoint string) *MediaStore {
	return &MediaStore{externalEndpoint: externalEndpoint}
}

// Upload 写入 folder/yyyy/mm/<uuid><ext>，ExternalID 即对象名
func (s *MediaStore) Upload(ctx context.Context, folder string, item *dto.MediaUpload) (*dto.MediaAttachmentDTO, error) {
	if item == nil || item.Reader == nil {
		return nil, fmt.Errorf("media item has no content")
	}

	objectName := path.Join(folder, time.Now().Format("2006/01"), uuid.NewString()+extOf(item))
	key, err := UploadFile(ctx, objectName, item.Reader, item.Size, item.ContentType)
	if err != nil {
		return nil, err
	}

	return &dto.MediaAttachmentDTO{
		URL:        GetPublicURL(s.externalEndpoint, key),
		ExternalID: &key,
	}, nil
}

// Delete 删除 Upload 生成的对象
func (s *MediaStore) Delete(ctx context.Context, externalID string) error {
	return DeleteFile(ctx, externalID)
}

func extOf(item *dto.MediaUpload) string {
	if ext := path.Ext(item.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	if i := strings.IndexByte(item.ContentType, '/'); i > 0 {
		sub := item.ContentType[i+1:]
		if j := strings.IndexAny(sub, ";+"); j > 0 {
			sub = sub[:j]
		}
		return "." + sub
	}
	return ""
}
