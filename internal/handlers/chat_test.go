package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/logging"
	"chat-backend/internal/mocks"
	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
	"chat-backend/internal/service"
	"chat-backend/internal/telemetry"
	"chat-backend/internal/ws"
)

type chatDeps struct {
	chats      *mocks.ChatRepositoryMock
	messages   *mocks.MessageRepositoryMock
	users      *mocks.UserRepositoryMock
	dispatcher *mocks.DispatcherMock
	publisher  *mocks.PublisherMock
}

func newChatDeps() chatDeps {
	return chatDeps{
		chats:      new(mocks.ChatRepositoryMock),
		messages:   new(mocks.MessageRepositoryMock),
		users:      new(mocks.UserRepositoryMock),
		dispatcher: new(mocks.DispatcherMock),
		publisher:  new(mocks.PublisherMock),
	}
}

func setupChatRouter(d chatDeps, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logging.Discard()
	auth := service.NewAuthorizer(d.chats, d.users)
	handler := NewChatHandler(
		auth,
		service.NewChatService(auth, d.chats),
		service.NewMessageService(auth, d.chats, d.messages, d.dispatcher, log),
		telemetry.NewAuditEmitter(d.publisher, "chat-backend", "test", log),
		log,
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.POST("/chats", handler.StartChat)
	r.PATCH("/chats/:chat_id", handler.UpdateTitle)
	r.DELETE("/chats/:chat_id", handler.LeaveChat)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	r.DELETE("/messages/:message_id", handler.DeleteMessage)
	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestListChatsSuccess(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.chats.On("ListChats", mock.Anything, 1).Return([]models.ChatSummary{{
		ChatID:  3,
		Title:   "bob",
		Members: []models.PublicUser{{ID: 2, Name: "bob"}},
	}}, nil).Once()

	rec := perform(router, http.MethodGet, "/chats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, true, resp["success"])
	result := resp["result"].([]any)
	require.Len(t, result, 1)
	assert.EqualValues(t, 3, result[0].(map[string]any)["id"])
	d.chats.AssertExpectations(t)
}

func TestListChatsRepoError(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.chats.On("ListChats", mock.Anything, 1).Return(([]models.ChatSummary)(nil), assert.AnError).Once()

	rec := perform(router, http.MethodGet, "/chats", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, false, resp["success"])
	assert.NotContains(t, resp["message"], assert.AnError.Error())
	_, hasResult := resp["result"]
	assert.False(t, hasResult)
}

func TestStartChatCreated(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	d.chats.On("FindDirectChat", mock.Anything, 1, 2).Return(nil, repositories.ErrChatNotFound).Once()
	d.chats.On("CreateDirectChat", mock.Anything, 1, 2).Return(models.ChatThread{ID: 9}, true, nil).Once()
	d.publisher.On("Publish", mock.Anything, telemetry.RoutingAudit, mock.Anything, mock.Anything).Return(nil).Once()

	rec := perform(router, http.MethodPost, "/chats", `{"user_id":2}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.EqualValues(t, 9, resp["result"].(map[string]any)["id"])
	d.chats.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func TestStartChatExisting(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.users.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	d.chats.On("FindDirectChat", mock.Anything, 1, 2).Return(models.ChatThread{ID: 4}, nil).Once()

	rec := perform(router, http.MethodPost, "/chats", `{"user_id":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	d.chats.AssertNotCalled(t, "CreateDirectChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartChatErrors(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.users.On("UserExists", mock.Anything, 99).Return(false, nil).Once()

	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodPost, "/chats", `{"user_id":1}`).Code)
	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodPost, "/chats", `{"user_id":99}`).Code)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodPost, "/chats", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodPost, "/chats", `not json`).Code)
}

func TestUpdateTitle(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.chats.On("IsMember", mock.Anything, 3, 1).Return(true, nil).Once()
	d.chats.On("UpdateTitle", mock.Anything, 3, 1, "Team").Return(true, nil).Once()

	rec := perform(router, http.MethodPatch, "/chats/3", `{"title":"Team"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	d.chats.AssertExpectations(t)
}

func TestLeaveChatNotMember(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 3)

	d.chats.On("RemoveMember", mock.Anything, 7, 3).Return(false, nil).Once()

	rec := perform(router, http.MethodDelete, "/chats/7", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetChatMessagesNonMember(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 3)

	d.chats.On("IsMember", mock.Anything, 7, 3).Return(false, nil).Once()

	rec := perform(router, http.MethodGet, "/chats/7/messages", "")

	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, false, resp["success"])
	assert.Nil(t, resp["result"])
}

func TestGetChatMessagesWithCursor(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)
	before := 20

	d.chats.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	d.messages.On("ListMessages", mock.Anything, 7, &before, service.PageSize).
		Return([]models.ChatMessage{{ID: 19}, {ID: 18}}, nil).Once()

	rec := perform(router, http.MethodGet, "/chats/7/messages?before=20", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Len(t, resp["result"], 2)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodGet, "/chats/7/messages?before=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodGet, "/chats/abc/messages", "").Code)
}

func TestPostChatMessageDispatches(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)
	content := "hello"
	stored := models.ChatMessage{ID: 30, ChatID: 7, UserID: 1, Content: &content}

	d.chats.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	d.messages.On("CreateMessage", mock.Anything, 7, 1, &content, (*string)(nil)).Return(stored, nil).Once()
	d.chats.On("MemberIDs", mock.Anything, 7).Return([]int{1, 2}, nil).Once()
	d.dispatcher.On("Dispatch", mock.Anything, []int{2}, mock.MatchedBy(func(e models.ChatEvent) bool {
		return e.Event == models.EventMessage
	})).Return(ws.DispatchStats{Recipients: 1, Delivered: 1}).Once()

	rec := perform(router, http.MethodPost, "/chats/7/messages", `{"content":"hello"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.EqualValues(t, 30, resp["result"].(map[string]any)["id"])
	d.dispatcher.AssertExpectations(t)
}

func TestPostChatMessageNonMember(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 3)

	d.chats.On("IsMember", mock.Anything, 7, 3).Return(false, nil).Once()

	rec := perform(router, http.MethodPost, "/chats/7/messages", `{"content":"x"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	d.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostChatMessageEmpty(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	rec := perform(router, http.MethodPost, "/chats/7/messages", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, "content or image_path is required", resp["message"])
}

func TestDeleteMessage(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 1)

	d.messages.On("SoftDeleteMessage", mock.Anything, 30, 1).
		Return(models.ChatMessage{ID: 30, ChatID: 7, UserID: 1, Deleted: true}, nil).Once()
	d.chats.On("MemberIDs", mock.Anything, 7).Return([]int{1}, nil).Once()
	d.publisher.On("Publish", mock.Anything, telemetry.RoutingAudit, mock.Anything, mock.Anything).Return(nil).Once()

	rec := perform(router, http.MethodDelete, "/messages/30", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	d.messages.AssertExpectations(t)
}

func TestDeleteMessageDenied(t *testing.T) {
	d := newChatDeps()
	router := setupChatRouter(d, 2)

	d.messages.On("SoftDeleteMessage", mock.Anything, 30, 2).Return(nil, repositories.ErrMessageNotFound).Once()

	rec := perform(router, http.MethodDelete, "/messages/30", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
