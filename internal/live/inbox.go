package live

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/models"
)

// ConversationSource is the read/write side the inbox view is built from.
type ConversationSource interface {
	LoadConversations(ctx context.Context, selfID string) ([]models.Conversation, error)
	LoadThread(ctx context.Context, selfID string, partnerID string) ([]models.Message, error)
	MarkThreadRead(ctx context.Context, selfID string, partnerID string) error
	SendMessage(ctx context.Context, selfID string, partnerID string, content string) (*models.Message, error)
}

// Change reports which parts of a view an operation touched.
type Change uint8

const (
	ChangeNone   Change = 0
	ChangeInbox  Change = 1 << 0
	ChangeThread Change = 1 << 1
)

func (c Change) Has(part Change) bool {
	return c&part != 0
}

// Inbox is one user's conversation list plus at most one open thread. It is
// not safe for concurrent use; a Session drives it from a single goroutine.
type Inbox struct {
	selfID        string
	source        ConversationSource
	conversations []models.Conversation
	openPartnerID string
	thread        []models.Message
}

func NewInbox(selfID string, source ConversationSource) *Inbox {
	return &Inbox{
		selfID:        selfID,
		source:        source,
		conversations: []models.Conversation{},
	}
}

// Load recomputes the conversation list. On failure the previous list is kept.
func (i *Inbox) Load(ctx context.Context) error {
	conversations, err := i.source.LoadConversations(ctx, i.selfID)
	if err != nil {
		return err
	}
	i.conversations = conversations
	return nil
}

// OpenThread loads the transcript with partnerID, which also marks it read.
func (i *Inbox) OpenThread(ctx context.Context, partnerID string) error {
	thread, err := i.source.LoadThread(ctx, i.selfID, partnerID)
	if err != nil {
		return err
	}
	i.openPartnerID = partnerID
	i.thread = thread

	for idx := range i.conversations {
		if i.conversations[idx].PartnerID == partnerID {
			i.conversations[idx].UnreadCount = 0
		}
	}
	return nil
}

// CloseThread drops the open thread and refreshes the list so previews
// received while the thread was open show up.
func (i *Inbox) CloseThread(ctx context.Context) error {
	i.openPartnerID = ""
	i.thread = nil
	return i.Load(ctx)
}

// HandleMessageInsert applies a newly stored message. Messages of the open
// thread are appended and, when they come from the partner, marked read
// right away. Anything else triggers a full recompute of the list.
func (i *Inbox) HandleMessageInsert(ctx context.Context, message models.Message) (Change, error) {
	if !message.Involves(i.selfID) {
		return ChangeNone, nil
	}

	partnerID := message.PartnerOf(i.selfID)
	if i.openPartnerID != "" && partnerID == i.openPartnerID {
		for _, existing := range i.thread {
			if existing.ID == message.ID {
				return ChangeNone, nil
			}
		}

		if message.SenderID == partnerID && !message.IsRead {
			if err := i.source.MarkThreadRead(ctx, i.selfID, partnerID); err != nil {
				i.thread = append(i.thread, message)
				return ChangeThread, err
			}
			message.IsRead = true
		}
		i.thread = append(i.thread, message)
		return ChangeThread, nil
	}

	if err := i.Load(ctx); err != nil {
		return ChangeNone, err
	}
	return ChangeInbox, nil
}

// Reload refreshes everything after events may have been missed.
func (i *Inbox) Reload(ctx context.Context) (Change, error) {
	if err := i.Load(ctx); err != nil {
		return ChangeNone, err
	}
	if i.openPartnerID == "" {
		return ChangeInbox, nil
	}
	thread, err := i.source.LoadThread(ctx, i.selfID, i.openPartnerID)
	if err != nil {
		return ChangeInbox, err
	}
	i.thread = thread
	return ChangeInbox | ChangeThread, nil
}

func (i *Inbox) Conversations() []models.Conversation {
	out := make([]models.Conversation, len(i.conversations))
	copy(out, i.conversations)
	return out
}

// Thread returns the open partner and its transcript, or "" when no thread is open.
func (i *Inbox) Thread() (string, []models.Message) {
	if i.openPartnerID == "" {
		return "", nil
	}
	out := make([]models.Message, len(i.thread))
	copy(out, i.thread)
	return i.openPartnerID, out
}
