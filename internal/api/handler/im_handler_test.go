package handler

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/api/dto"
	"OurSpace/internal/pkg/consts"
	"OurSpace/internal/realtime"
	"OurSpace/internal/service"
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIMService struct {
	sendErr  error
	senderID uint64
	req      *dto.SendMessageReq
	payloads [][]byte

	scope       string
	listingID   *uint64
	counterpart uint64
}

func (f *fakeIMService) SendMessage(_ context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	f.senderID = senderID
	f.req = req
	for _, m := range req.Media {
		if m.Reader != nil {
			b, _ := io.ReadAll(m.Reader)
			f.payloads = append(f.payloads, b)
		}
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &dto.MessageDTO{ID: "m1", SenderID: senderID, ReceiverID: req.ReceiverID, Content: req.Content}, nil
}

func (f *fakeIMService) GetConversation(_ context.Context, listingID *uint64, _ uint64, userB uint64) ([]*dto.MessageDTO, error) {
	f.listingID = listingID
	f.counterpart = userB
	return []*dto.MessageDTO{{ID: "m1"}}, nil
}

func (f *fakeIMService) GetConversationSummaries(_ context.Context, _ uint64, scope string) ([]*dto.ConversationSummaryDTO, error) {
	f.scope = scope
	return []*dto.ConversationSummaryDTO{}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEngine(h *IMHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(consts.UserIDKey, uint64(1))
		c.Next()
	})
	r.POST("/api/im/send", h.SendMessage)
	r.GET("/api/im/list", h.GetConversationList)
	r.GET("/api/im/conversation", h.GetConversation)
	r.GET("/api/im/presence", h.GetPresence)
	return r
}

func newTestHandler(svc *fakeIMService) *IMHandler {
	reg := realtime.NewRegistry(config.WebSocketConfig{SendBuffer: 4})
	return NewIMHandler(svc, realtime.NewPresence(reg))
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func multipartRequest(t *testing.T, fields map[string][]string, files map[string][]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("media[]", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/im/send", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...)

func TestIMHandler_SendMessageMultipart(t *testing.T) {
	svc := &fakeIMService{}
	r := newTestEngine(newTestHandler(svc))

	req := multipartRequest(t,
		map[string][]string{
			"receiver": {"2"},
			"listing":  {"100"},
			"content":  {"hello"},
			"media[]":  {"https://cdn.example.com/a.jpg"},
		},
		map[string][]byte{"photo.png": pngBytes},
	)
	env := serve(t, r, req)

	assert.Equal(t, 200, env.Code)
	assert.Equal(t, uint64(1), svc.senderID)
	require.NotNil(t, svc.req)
	assert.Equal(t, uint64(2), svc.req.ReceiverID)
	require.NotNil(t, svc.req.ListingID)
	assert.Equal(t, uint64(100), *svc.req.ListingID)
	assert.Equal(t, "hello", svc.req.Content)

	require.Len(t, svc.req.Media, 2)
	assert.True(t, svc.req.Media[0].IsPassthrough())
	assert.Equal(t, "photo.png", svc.req.Media[1].Filename)
	assert.Equal(t, "image/png", svc.req.Media[1].ContentType)
	require.Len(t, svc.payloads, 1)
	assert.Equal(t, pngBytes, svc.payloads[0])
}

func TestIMHandler_SendMessageRejectsBadInput(t *testing.T) {
	svc := &fakeIMService{}
	r := newTestEngine(newTestHandler(svc))

	env := serve(t, r, multipartRequest(t, map[string][]string{"content": {"hi"}}, nil))
	assert.Equal(t, service.BadRequest, env.Code)

	env = serve(t, r, multipartRequest(t,
		map[string][]string{"receiver": {"2"}},
		map[string][]byte{"notes.txt": []byte("just some text")},
	))
	assert.Equal(t, service.BadRequest, env.Code)
	assert.Equal(t, service.ErrFileNotSupported.Error(), env.Message)
	assert.Nil(t, svc.req)
}

func TestIMHandler_SendMessageMapsServiceErrors(t *testing.T) {
	svc := &fakeIMService{sendErr: service.ErrMediaUpstream}
	r := newTestEngine(newTestHandler(svc))

	env := serve(t, r, multipartRequest(t, map[string][]string{"receiver": {"2"}, "content": {"hi"}}, nil))
	assert.Equal(t, service.BadGateway, env.Code)

	svc.sendErr = service.ErrReceiverNotFound
	env = serve(t, r, multipartRequest(t, map[string][]string{"receiver": {"2"}, "content": {"hi"}}, nil))
	assert.Equal(t, service.NotFound, env.Code)
}

func TestIMHandler_GetConversationList(t *testing.T) {
	svc := &fakeIMService{}
	r := newTestEngine(newTestHandler(svc))

	env := serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/list", nil))
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, consts.ChatScopeAll, svc.scope)

	env = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/list?scope=owner", nil))
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, consts.ChatScopeOwner, svc.scope)

	env = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/list?scope=admin", nil))
	assert.Equal(t, service.BadRequest, env.Code)
}

func TestIMHandler_GetConversation(t *testing.T) {
	svc := &fakeIMService{}
	r := newTestEngine(newTestHandler(svc))

	env := serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/conversation?listingId=5&with=2", nil))
	assert.Equal(t, 200, env.Code)
	require.NotNil(t, svc.listingID)
	assert.Equal(t, uint64(5), *svc.listingID)
	assert.Equal(t, uint64(2), svc.counterpart)

	env = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/conversation?listingId=5", nil))
	assert.Equal(t, service.BadRequest, env.Code)
}

func TestIMHandler_GetPresence(t *testing.T) {
	r := newTestEngine(newTestHandler(&fakeIMService{}))

	env := serve(t, r, httptest.NewRequest(http.MethodGet, "/api/im/presence", nil))
	assert.Equal(t, 200, env.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}
