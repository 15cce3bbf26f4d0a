package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/stretchr/testify/require"
)

const (
	self    = "11111111-1111-1111-1111-111111111111"
	partner = "22222222-2222-2222-2222-222222222222"
	other   = "33333333-3333-3333-3333-333333333333"
)

var errUnavailable = errors.New("unavailable")

type stubConversations struct {
	mu            sync.Mutex
	conversations []models.Conversation
	threads       map[string][]models.Message
	loads         int
	markCalls     int
	markErr       error
	sent          []models.Message
}

func (s *stubConversations) LoadConversations(context.Context, string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return append([]models.Conversation(nil), s.conversations...), nil
}

func (s *stubConversations) LoadThread(_ context.Context, _ string, partnerID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.threads[partnerID]...), nil
}

func (s *stubConversations) MarkThreadRead(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	return s.markErr
}

func (s *stubConversations) SendMessage(_ context.Context, selfID, partnerID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := models.Message{ID: "sent-1", SenderID: selfID, ReceiverID: partnerID, Content: content}
	s.sent = append(s.sent, message)
	return &message, nil
}

func (s *stubConversations) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type stubNotifications struct {
	feed    models.NotificationFeed
	limit   int
	err     error
	calls   []string
	loadErr error
}

func (s *stubNotifications) LoadNotifications(context.Context, string) (*models.NotificationFeed, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	feed := models.NotificationFeed{
		Notifications: append([]models.Notification(nil), s.feed.Notifications...),
		UnreadCount:   s.feed.UnreadCount,
	}
	return &feed, nil
}

func (s *stubNotifications) MarkAsRead(_ context.Context, _ string, id string) error {
	s.calls = append(s.calls, "read:"+id)
	return s.err
}

func (s *stubNotifications) MarkAllAsRead(context.Context, string) error {
	s.calls = append(s.calls, "read-all")
	return s.err
}

func (s *stubNotifications) Delete(_ context.Context, _ string, id string) error {
	s.calls = append(s.calls, "delete:"+id)
	return s.err
}

func (s *stubNotifications) FeedLimit() int {
	return s.limit
}

func notification(id string, isRead bool) models.Notification {
	return models.Notification{ID: id, UserID: self, Type: models.NotificationNewMedia, Title: id, IsRead: isRead}
}

func TestInboxAppendsToOpenThreadAndMarksRead(t *testing.T) {
	ctx := context.Background()
	source := &stubConversations{
		conversations: []models.Conversation{{PartnerID: partner, UnreadCount: 2}},
		threads: map[string][]models.Message{
			partner: {{ID: "m1", SenderID: partner, ReceiverID: self, Content: "hi", IsRead: true}},
		},
	}
	inbox := NewInbox(self, source)
	require.NoError(t, inbox.Load(ctx))
	require.NoError(t, inbox.OpenThread(ctx, partner))
	require.Equal(t, 0, inbox.Conversations()[0].UnreadCount)

	change, err := inbox.HandleMessageInsert(ctx, models.Message{ID: "m2", SenderID: partner, ReceiverID: self, Content: "you there?"})
	require.NoError(t, err)
	require.True(t, change.Has(ChangeThread))
	require.False(t, change.Has(ChangeInbox))
	require.Equal(t, 1, source.markCalls)

	partnerID, thread := inbox.Thread()
	require.Equal(t, partner, partnerID)
	require.Len(t, thread, 2)
	require.Equal(t, "m2", thread[1].ID)
	require.True(t, thread[1].IsRead)

	change, err = inbox.HandleMessageInsert(ctx, models.Message{ID: "m3", SenderID: self, ReceiverID: partner, Content: "yes"})
	require.NoError(t, err)
	require.True(t, change.Has(ChangeThread))
	require.Equal(t, 1, source.markCalls, "own messages must not trigger mark-read")

	change, err = inbox.HandleMessageInsert(ctx, models.Message{ID: "m3", SenderID: self, ReceiverID: partner, Content: "yes"})
	require.NoError(t, err)
	require.Equal(t, ChangeNone, change)
	_, thread = inbox.Thread()
	require.Len(t, thread, 3)
}

func TestInboxRecomputesForOtherPartners(t *testing.T) {
	ctx := context.Background()
	source := &stubConversations{threads: map[string][]models.Message{}}
	inbox := NewInbox(self, source)
	require.NoError(t, inbox.Load(ctx))
	require.NoError(t, inbox.OpenThread(ctx, partner))
	loadsBefore := source.loadCount()

	change, err := inbox.HandleMessageInsert(ctx, models.Message{ID: "m1", SenderID: other, ReceiverID: self})
	require.NoError(t, err)
	require.True(t, change.Has(ChangeInbox))
	require.Equal(t, loadsBefore+1, source.loadCount())
	require.Equal(t, 0, source.markCalls)

	change, err = inbox.HandleMessageInsert(ctx, models.Message{ID: "m2", SenderID: other, ReceiverID: partner})
	require.NoError(t, err)
	require.Equal(t, ChangeNone, change)
	require.Equal(t, loadsBefore+1, source.loadCount())
}

func TestInboxKeepsMessageWhenMarkReadFails(t *testing.T) {
	ctx := context.Background()
	source := &stubConversations{threads: map[string][]models.Message{}, markErr: errUnavailable}
	inbox := NewInbox(self, source)
	require.NoError(t, inbox.OpenThread(ctx, partner))

	change, err := inbox.HandleMessageInsert(ctx, models.Message{ID: "m1", SenderID: partner, ReceiverID: self})
	require.ErrorIs(t, err, errUnavailable)
	require.True(t, change.Has(ChangeThread))
	_, thread := inbox.Thread()
	require.Len(t, thread, 1)
	require.False(t, thread[0].IsRead)
}

func TestNotificationViewHandleInsert(t *testing.T) {
	ctx := context.Background()
	source := &stubNotifications{
		limit: 3,
		feed: models.NotificationFeed{
			Notifications: []models.Notification{notification("n2", false), notification("n1", true)},
			UnreadCount:   1,
		},
	}
	view := NewNotificationView(self, source)
	require.NoError(t, view.Load(ctx))

	require.True(t, view.HandleInsert(notification("n3", false)))
	require.Equal(t, 2, view.UnreadCount())
	require.Equal(t, "n3", view.Snapshot().Notifications[0].ID)

	require.False(t, view.HandleInsert(notification("n3", false)), "duplicate ids are ignored")
	foreign := notification("x1", false)
	foreign.UserID = other
	require.False(t, view.HandleInsert(foreign))

	require.True(t, view.HandleInsert(notification("n4", false)))
	snapshot := view.Snapshot()
	require.Len(t, snapshot.Notifications, 3)
	require.Equal(t, "n4", snapshot.Notifications[0].ID)
	require.Equal(t, "n2", snapshot.Notifications[2].ID)
	require.Equal(t, 3, snapshot.UnreadCount)

	require.True(t, view.HandleInsert(notification("n5", false)))
	require.Equal(t, 3, view.UnreadCount(), "trimming an unread row keeps the count in step with the page")
}

func TestNotificationViewOptimisticMutations(t *testing.T) {
	ctx := context.Background()
	source := &stubNotifications{
		limit: 50,
		err:   errUnavailable,
		feed: models.NotificationFeed{
			Notifications: []models.Notification{
				{ID: "b1", UserID: self, Type: models.NotificationBookingRequest},
				notification("n1", false),
				notification("n0", true),
			},
			UnreadCount: 2,
		},
	}
	view := NewNotificationView(self, source)
	require.NoError(t, view.Load(ctx))
	require.True(t, view.IsActionable("b1"))
	require.False(t, view.IsActionable("n1"))

	require.ErrorIs(t, view.MarkAsRead(ctx, "b1"), errUnavailable)
	require.False(t, view.IsActionable("b1"))
	require.Equal(t, 1, view.UnreadCount(), "no rollback when the store rejects the write")

	require.ErrorIs(t, view.MarkAsRead(ctx, "b1"), errUnavailable)
	require.Equal(t, 1, view.UnreadCount())

	require.ErrorIs(t, view.Delete(ctx, "n1"), errUnavailable)
	require.Equal(t, 0, view.UnreadCount())
	require.Len(t, view.Snapshot().Notifications, 2)

	require.True(t, view.HandleInsert(notification("n2", false)))
	require.ErrorIs(t, view.MarkAllAsRead(ctx), errUnavailable)
	require.Equal(t, 0, view.UnreadCount())
	for _, n := range view.Snapshot().Notifications {
		require.True(t, n.IsRead)
	}

	require.Equal(t, []string{"read:b1", "read:b1", "delete:n1", "read-all"}, source.calls)
}

func TestNotificationViewHandleUpdate(t *testing.T) {
	ctx := context.Background()
	request := models.Notification{ID: "b1", UserID: self, Type: models.NotificationBookingRequest}
	source := &stubNotifications{
		limit: 50,
		feed: models.NotificationFeed{
			Notifications: []models.Notification{request, notification("n1", false)},
			UnreadCount:   2,
		},
	}
	view := NewNotificationView(self, source)
	require.NoError(t, view.Load(ctx))
	require.True(t, view.IsActionable("b1"))

	decided := request
	decided.IsRead = true
	require.True(t, view.HandleUpdate(decided))
	require.False(t, view.IsActionable("b1"))
	require.Equal(t, 1, view.UnreadCount())

	require.False(t, view.HandleUpdate(decided), "an unchanged read flag is not a change")
	require.False(t, view.HandleUpdate(notification("missing", true)))
	foreign := decided
	foreign.UserID = other
	require.False(t, view.HandleUpdate(foreign))
	require.Equal(t, 1, view.UnreadCount())
	require.Empty(t, source.calls, "updates from the feed never write back")
}

type updateRecorder struct {
	updates chan Update
}

func newUpdateRecorder() *updateRecorder {
	return &updateRecorder{updates: make(chan Update, 64)}
}

func (r *updateRecorder) sink(update Update) error {
	r.updates <- update
	return nil
}

func (r *updateRecorder) next(t *testing.T) Update {
	t.Helper()
	select {
	case update := <-r.updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func startSession(t *testing.T, broker *realtime.Broker, conversations *stubConversations, notifications *stubNotifications) (*Session, *updateRecorder) {
	t.Helper()
	recorder := newUpdateRecorder()
	session := NewSession(self, broker, conversations, notifications, recorder.sink)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- session.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errs:
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
	})

	require.Equal(t, UpdateInbox, recorder.next(t).Type)
	require.Equal(t, UpdateNotifications, recorder.next(t).Type)
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	return session, recorder
}

func TestSessionPushesLiveNotifications(t *testing.T) {
	broker := realtime.NewBroker(16)
	_, recorder := startSession(t, broker, &stubConversations{}, &stubNotifications{limit: 50})

	foreign, err := realtime.NewInsertEvent(realtime.TableNotifications, models.Notification{ID: "x", UserID: other})
	require.NoError(t, err)
	mine, err := realtime.NewInsertEvent(realtime.TableNotifications, notification("n1", false))
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), foreign))
	require.NoError(t, broker.Publish(context.Background(), mine))

	update := recorder.next(t)
	require.Equal(t, UpdateNotifications, update.Type)
	require.Equal(t, 1, update.Notifications.UnreadCount)
	require.Equal(t, "n1", update.Notifications.Notifications[0].ID)
}

func TestSessionClearsDecidedBookingRequest(t *testing.T) {
	broker := realtime.NewBroker(16)
	request := models.Notification{ID: "b1", UserID: self, Type: models.NotificationBookingRequest}
	notifications := &stubNotifications{
		limit: 50,
		feed:  models.NotificationFeed{Notifications: []models.Notification{request}, UnreadCount: 1},
	}
	_, recorder := startSession(t, broker, &stubConversations{}, notifications)

	decided := request
	decided.IsRead = true
	event, err := realtime.NewUpdateEvent(realtime.TableNotifications, decided)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), event))

	update := recorder.next(t)
	require.Equal(t, UpdateNotifications, update.Type)
	require.Equal(t, 0, update.Notifications.UnreadCount)
	require.True(t, update.Notifications.Notifications[0].IsRead)
	require.False(t, update.Notifications.Notifications[0].IsActionable())
}

func TestSessionAppliesMessagesInArrivalOrder(t *testing.T) {
	broker := realtime.NewBroker(16)
	conversations := &stubConversations{threads: map[string][]models.Message{}}
	session, recorder := startSession(t, broker, conversations, &stubNotifications{limit: 50})
	ctx := context.Background()

	require.NoError(t, session.OpenThread(ctx, partner))
	require.Equal(t, UpdateInbox, recorder.next(t).Type)
	require.Equal(t, UpdateThread, recorder.next(t).Type)

	for _, id := range []string{"m1", "m2"} {
		event, err := realtime.NewInsertEvent(realtime.TableMessages, models.Message{ID: id, SenderID: partner, ReceiverID: self})
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, event))
	}

	first := recorder.next(t)
	require.Equal(t, UpdateThread, first.Type)
	require.Len(t, first.Messages, 1)
	second := recorder.next(t)
	require.Len(t, second.Messages, 2)
	require.Equal(t, "m2", second.Messages[1].ID)

	_, err := session.SendMessage(ctx, partner, "on my way")
	require.NoError(t, err)
	require.Len(t, conversations.sent, 1)

	require.NoError(t, session.CloseThread(ctx))
	require.Equal(t, UpdateInbox, recorder.next(t).Type)
}

func TestSessionResyncReloadsEverything(t *testing.T) {
	broker := realtime.NewBroker(16)
	conversations := &stubConversations{}
	_, recorder := startSession(t, broker, conversations, &stubNotifications{limit: 50})
	loadsBefore := conversations.loadCount()

	broker.Resync(context.Background())

	require.Equal(t, UpdateInbox, recorder.next(t).Type)
	require.Equal(t, UpdateNotifications, recorder.next(t).Type)
	require.Equal(t, loadsBefore+1, conversations.loadCount())
}

func TestSessionCommandsAfterCloseFail(t *testing.T) {
	broker := realtime.NewBroker(16)
	recorder := newUpdateRecorder()
	session := NewSession(self, broker, &stubConversations{}, &stubNotifications{limit: 50}, recorder.sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, session.Run(ctx), context.Canceled)

	require.ErrorIs(t, session.MarkAllNotificationsRead(context.Background()), ErrSessionClosed)
	require.Equal(t, 0, broker.SubscriberCount())
}

func TestSessionStopsWhenSinkFails(t *testing.T) {
	broker := realtime.NewBroker(16)
	sinkErr := errors.New("client gone")
	session := NewSession(self, broker, &stubConversations{}, &stubNotifications{limit: 50}, func(Update) error {
		return sinkErr
	})

	require.ErrorIs(t, session.Run(context.Background()), sinkErr)
}
