package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/repositories"
	"chat-backend/internal/ws"
)

const (
	// PageSize is the fixed number of messages per page.
	PageSize = 100
	// MaxContentLength bounds message text in characters.
	MaxContentLength = 4000

	threadStripes = 64
)

// Dispatcher fans an event out to users' live connections.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []int, event models.ChatEvent) ws.DispatchStats
}

// MessageService creates, lists and deletes messages and pushes the changes
// to the other members of the thread.
type MessageService struct {
	auth       *Authorizer
	chats      repositories.ChatRepository
	messages   repositories.MessageRepository
	dispatcher Dispatcher
	log        *logrus.Logger

	// Insert and dispatch for one thread run under the same stripe so live
	// connections see messages in id order.
	stripes [threadStripes]sync.Mutex
}

func NewMessageService(auth *Authorizer, chats repositories.ChatRepository, messages repositories.MessageRepository, dispatcher Dispatcher, log *logrus.Logger) *MessageService {
	return &MessageService{
		auth:       auth,
		chats:      chats,
		messages:   messages,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (s *MessageService) stripe(threadID int) *sync.Mutex {
	idx := threadID % threadStripes
	if idx < 0 {
		idx = -idx
	}
	return &s.stripes[idx]
}

// ListMessages returns one page of the thread, newest first. With before set
// only messages with a smaller id are returned.
func (s *MessageService) ListMessages(ctx context.Context, userID, threadID int, before *int) ([]models.ChatMessage, error) {
	if err := s.auth.Authorize(ctx, userID, threadID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListMessages(ctx, threadID, before, PageSize)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

// CreateMessage persists a message and dispatches it to the other active
// members once the insert has committed.
func (s *MessageService) CreateMessage(ctx context.Context, userID, threadID int, content, imagePath *string) (models.ChatMessage, error) {
	ctx, span := otel.Tracer("chat-backend/service").Start(ctx, "message.create")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.id", threadID), attribute.Int("user.id", userID))

	content, imagePath = blankToNil(content), blankToNil(imagePath)
	if content == nil && imagePath == nil {
		return models.ChatMessage{}, fmt.Errorf("%w: content or image_path is required", ErrValidation)
	}
	if content != nil && utf8.RuneCountInString(*content) > MaxContentLength {
		return models.ChatMessage{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, MaxContentLength)
	}

	if err := s.auth.Authorize(ctx, userID, threadID); err != nil {
		return models.ChatMessage{}, err
	}

	mu := s.stripe(threadID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.messages.CreateMessage(ctx, threadID, userID, content, imagePath)
	if err != nil {
		return models.ChatMessage{}, storageErr("create message", err)
	}
	observability.IncMessageCreated()
	span.SetAttributes(attribute.Int("message.id", msg.ID))

	// The row is committed; delivery must not depend on the author staying
	// connected.
	bg := context.WithoutCancel(ctx)
	s.fanOut(bg, threadID, userID, models.ChatEvent{Event: models.EventMessage, Data: msg})
	s.publish(bg, models.EventMessage, msg.ChatID, msg.ID, userID)
	return msg, nil
}

// DeleteMessage soft-deletes a message authored by userID in a thread they
// still belong to. Missing, foreign and already deleted messages, and
// messages in threads the author left, all yield ErrPermission.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID int) error {
	msg, err := s.messages.SoftDeleteMessage(ctx, messageID, userID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return ErrPermission
	}
	if err != nil {
		return storageErr("delete message", err)
	}

	bg := context.WithoutCancel(ctx)
	mu := s.stripe(msg.ChatID)
	mu.Lock()
	s.fanOut(bg, msg.ChatID, userID, models.ChatEvent{
		Event: models.EventMessageDeleted,
		Data:  models.MessageDeleted{ChatID: msg.ChatID, MessageID: msg.ID},
	})
	mu.Unlock()

	s.publish(bg, models.EventMessageDeleted, msg.ChatID, msg.ID, userID)
	return nil
}

// fanOut pushes event to every active member except the author. Failures are
// logged only; the stored change stands.
func (s *MessageService) fanOut(ctx context.Context, threadID, authorID int, event models.ChatEvent) {
	members, err := s.chats.MemberIDs(ctx, threadID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"chat_id": threadID, "event": event.Event}).Warn("resolve recipients failed")
		return
	}

	recipients := make([]int, 0, len(members))
	for _, id := range members {
		if id != authorID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	stats := s.dispatcher.Dispatch(ctx, recipients, event)
	s.log.WithFields(logrus.Fields{
		"chat_id":    threadID,
		"event":      event.Event,
		"recipients": stats.Recipients,
		"offline":    stats.Offline,
		"delivered":  stats.Delivered,
		"failed":     stats.Failed,
	}).Debug("realtime fan-out")
}

func (s *MessageService) publish(ctx context.Context, event string, chatID, messageID, userID int) {
	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}
	err := observability.PublishEvent(ctx, observability.RoutingMessageEvents, observability.EventEnvelope{
		EventType: "chat_events",
		EventName: event,
		Payload: map[string]interface{}{
			"chat_id":    chatID,
			"message_id": messageID,
			"user_id":    userID,
		},
	}, observability.BuildHeaders("", traceID))
	if err != nil {
		s.log.WithError(err).WithField("event", event).Debug("publish message event failed")
	}
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Pager walks a thread page by page from the newest message.
type Pager struct {
	svc      *MessageService
	userID   int
	threadID int
	cursor   *int
	done     bool
}

// Pages returns a Pager over the thread as seen by userID.
func (s *MessageService) Pages(userID, threadID int) *Pager {
	return &Pager{svc: s, userID: userID, threadID: threadID}
}

// Next fetches the page after the last one returned. It returns an empty
// page once the thread is exhausted.
func (p *Pager) Next(ctx context.Context) ([]models.ChatMessage, error) {
	if p.done {
		return []models.ChatMessage{}, nil
	}
	page, err := p.svc.ListMessages(ctx, p.userID, p.threadID, p.cursor)
	if err != nil {
		return nil, err
	}
	if len(page) < PageSize {
		p.done = true
	}
	if len(page) > 0 {
		last := page[len(page)-1].ID
		p.cursor = &last
	}
	return page, nil
}

// Reset restarts the walk from the newest message.
func (p *Pager) Reset() {
	p.cursor = nil
	p.done = false
}
