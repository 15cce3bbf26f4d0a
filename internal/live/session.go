package live

import (
	"context"
	"errors"
	"log"

	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/observability"
	"github.com/saeid-a/CoachSync/internal/realtime"
)

const (
	UpdateInbox         = "inbox"
	UpdateThread        = "thread"
	UpdateNotifications = "notifications"
)

var ErrSessionClosed = errors.New("live session closed")

// Update is a snapshot pushed to the connected client.
type Update struct {
	Type          string                   `json:"type"`
	Conversations []models.Conversation    `json:"conversations,omitempty"`
	PartnerID     string                   `json:"partner_id,omitempty"`
	Messages      []models.Message         `json:"messages,omitempty"`
	Notifications *models.NotificationFeed `json:"notifications,omitempty"`
}

// Sink delivers updates to the client. An error ends the session.
type Sink func(update Update) error

type command struct {
	run   func(ctx context.Context) error
	reply chan error
}

// Session keeps one user's inbox and notification feed in sync with the
// change feed. Feed events and client commands are handled one at a time by
// the goroutine running Run, in arrival order.
type Session struct {
	selfID        string
	feed          realtime.Feed
	conversations ConversationSource
	inbox         *Inbox
	notifications *NotificationView
	sink          Sink
	commands      chan command
	done          chan struct{}
}

func NewSession(
	selfID string,
	feed realtime.Feed,
	conversations ConversationSource,
	notifications NotificationSource,
	sink Sink,
) *Session {
	return &Session{
		selfID:        selfID,
		feed:          feed,
		conversations: conversations,
		inbox:         NewInbox(selfID, conversations),
		notifications: NewNotificationView(selfID, notifications),
		sink:          sink,
		commands:      make(chan command),
		done:          make(chan struct{}),
	}
}

// Topics are the change-feed subscriptions a session of selfID needs.
func Topics(selfID string) []realtime.Topic {
	return []realtime.Topic{
		{Table: realtime.TableMessages, Filter: realtime.AnyColumnEquals(selfID, "sender_id", "receiver_id")},
		{Table: realtime.TableNotifications, Filter: realtime.ColumnEquals("user_id", selfID)},
	}
}

// Run subscribes, pushes the initial snapshots and then dispatches until ctx
// ends or the sink fails.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	observability.IncLiveSessions()
	defer observability.DecLiveSessions()

	// Subscribe before the initial load so inserts racing it are queued.
	sub := s.feed.Subscribe(Topics(s.selfID)...)
	defer sub.Close()

	if err := s.inbox.Load(ctx); err != nil {
		log.Printf("live session %s: load conversations: %v", s.selfID, err)
	}
	if err := s.notifications.Load(ctx); err != nil {
		log.Printf("live session %s: load notifications: %v", s.selfID, err)
	}
	if err := s.push(ChangeInbox, true); err != nil {
		return err
	}

	events := make(chan realtime.ChangeEvent)
	go func() {
		defer close(events)
		for {
			event, err := sub.Next(ctx)
			if err != nil {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return realtime.ErrQueueClosed
			}
			if err := s.handleEvent(ctx, event); err != nil {
				return err
			}
		case cmd := <-s.commands:
			cmd.reply <- cmd.run(ctx)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, event realtime.ChangeEvent) error {
	switch {
	case event.Operation == realtime.OperationResync:
		change, err := s.inbox.Reload(ctx)
		if err != nil {
			log.Printf("live session %s: reload conversations: %v", s.selfID, err)
		}
		if err := s.notifications.Load(ctx); err != nil {
			log.Printf("live session %s: reload notifications: %v", s.selfID, err)
		}
		return s.push(change, true)

	case event.Table == realtime.TableMessages && event.Operation == realtime.OperationInsert:
		var message models.Message
		if err := event.DecodeRow(&message); err != nil {
			log.Printf("live session %s: %v", s.selfID, err)
			return nil
		}
		change, err := s.inbox.HandleMessageInsert(ctx, message)
		if err != nil {
			log.Printf("live session %s: apply message %s: %v", s.selfID, message.ID, err)
		}
		return s.push(change, false)

	case event.Table == realtime.TableNotifications && event.Operation == realtime.OperationInsert:
		var notification models.Notification
		if err := event.DecodeRow(&notification); err != nil {
			log.Printf("live session %s: %v", s.selfID, err)
			return nil
		}
		if !s.notifications.HandleInsert(notification) {
			return nil
		}
		return s.push(ChangeNone, true)

	case event.Table == realtime.TableNotifications && event.Operation == realtime.OperationUpdate:
		var notification models.Notification
		if err := event.DecodeRow(&notification); err != nil {
			log.Printf("live session %s: %v", s.selfID, err)
			return nil
		}
		if !s.notifications.HandleUpdate(notification) {
			return nil
		}
		return s.push(ChangeNone, true)
	}
	return nil
}

func (s *Session) push(change Change, notifications bool) error {
	if change.Has(ChangeInbox) {
		if err := s.sink(Update{Type: UpdateInbox, Conversations: s.inbox.Conversations()}); err != nil {
			return err
		}
	}
	if change.Has(ChangeThread) {
		partnerID, messages := s.inbox.Thread()
		if err := s.sink(Update{Type: UpdateThread, PartnerID: partnerID, Messages: messages}); err != nil {
			return err
		}
	}
	if notifications {
		feed := s.notifications.Snapshot()
		if err := s.sink(Update{Type: UpdateNotifications, Notifications: &feed}); err != nil {
			return err
		}
	}
	return nil
}

// do runs fn on the dispatcher goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	select {
	case s.commands <- command{run: fn, reply: reply}:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) OpenThread(ctx context.Context, partnerID string) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.inbox.OpenThread(ctx, partnerID); err != nil {
			return err
		}
		return s.push(ChangeInbox|ChangeThread, false)
	})
}

func (s *Session) CloseThread(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.inbox.CloseThread(ctx); err != nil {
			log.Printf("live session %s: reload conversations: %v", s.selfID, err)
		}
		return s.push(ChangeInbox, false)
	})
}

// SendMessage stores the message. The views pick it up from the change feed.
func (s *Session) SendMessage(ctx context.Context, partnerID string, content string) (*models.Message, error) {
	return s.conversations.SendMessage(ctx, s.selfID, partnerID, content)
}

func (s *Session) MarkNotificationRead(ctx context.Context, id string) error {
	return s.do(ctx, func(ctx context.Context) error {
		err := s.notifications.MarkAsRead(ctx, id)
		if pushErr := s.push(ChangeNone, true); pushErr != nil {
			return pushErr
		}
		return err
	})
}

func (s *Session) MarkAllNotificationsRead(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		err := s.notifications.MarkAllAsRead(ctx)
		if pushErr := s.push(ChangeNone, true); pushErr != nil {
			return pushErr
		}
		return err
	})
}

func (s *Session) DeleteNotification(ctx context.Context, id string) error {
	return s.do(ctx, func(ctx context.Context) error {
		err := s.notifications.Delete(ctx, id)
		if pushErr := s.push(ChangeNone, true); pushErr != nil {
			return pushErr
		}
		return err
	})
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
