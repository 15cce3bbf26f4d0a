package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/realtime"
)

type messageStore interface {
	Create(ctx context.Context, senderID string, receiverID string, content string) (*models.Message, error)
	ListForParticipant(ctx context.Context, userID string) ([]models.Message, error)
	ListThread(ctx context.Context, userID string, partnerID string) ([]models.Message, error)
	MarkThreadRead(ctx context.Context, readerID string, partnerID string) (int64, error)
}

type profileLookup interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

type relationshipLister interface {
	ListForParticipant(ctx context.Context, userID string) ([]models.CoachClientRelationship, error)
}

type ConversationService struct {
	messages      messageStore
	profiles      profileLookup
	relationships relationshipLister
	changes       realtime.Publisher
}

func NewConversationService(
	messages messageStore,
	profiles profileLookup,
	relationships relationshipLister,
	changes realtime.Publisher,
) *ConversationService {
	if changes == nil {
		changes = realtime.NoopPublisher{}
	}
	return &ConversationService{
		messages:      messages,
		profiles:      profiles,
		relationships: relationships,
		changes:       changes,
	}
}

// LoadConversations builds the inbox of selfID from the full message log.
func (s *ConversationService) LoadConversations(ctx context.Context, selfID string) ([]models.Conversation, error) {
	if !validID(selfID) {
		return nil, ErrInvalidInput
	}

	messages, err := s.messages.ListForParticipant(ctx, selfID)
	if err != nil {
		return nil, err
	}

	partnerIDs := partnersOf(selfID, messages)
	profiles := s.lookupProfiles(ctx, partnerIDs)

	return BuildConversations(selfID, messages, profiles), nil
}

// LoadThread returns the transcript with partnerID oldest first. Opening a
// thread marks every unread message from partnerID to selfID as read.
func (s *ConversationService) LoadThread(ctx context.Context, selfID string, partnerID string) ([]models.Message, error) {
	if !validIDs(selfID, partnerID) {
		return nil, ErrInvalidInput
	}

	messages, err := s.messages.ListThread(ctx, selfID, partnerID)
	if err != nil {
		return nil, err
	}

	if err := s.MarkThreadRead(ctx, selfID, partnerID); err != nil {
		log.Printf("mark thread read self=%s partner=%s: %v", selfID, partnerID, err)
		return messages, nil
	}

	for i := range messages {
		if messages[i].SenderID == partnerID && messages[i].ReceiverID == selfID {
			messages[i].IsRead = true
		}
	}
	return messages, nil
}

func (s *ConversationService) MarkThreadRead(ctx context.Context, selfID string, partnerID string) error {
	if !validIDs(selfID, partnerID) {
		return ErrInvalidInput
	}
	_, err := s.messages.MarkThreadRead(ctx, selfID, partnerID)
	return err
}

// SendMessage stores a new unread message from selfID to partnerID.
// Blank content is rejected before anything is written.
func (s *ConversationService) SendMessage(
	ctx context.Context,
	selfID string,
	partnerID string,
	content string,
) (*models.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if !validIDs(selfID, partnerID) || selfID == partnerID {
		return nil, ErrInvalidInput
	}

	message, err := s.messages.Create(ctx, selfID, partnerID, trimmed)
	if err != nil {
		return nil, err
	}

	publishInsert(ctx, s.changes, realtime.TableMessages, message)
	return message, nil
}

// ListContacts returns everyone selfID shares a coach/client relationship
// with, which is who a new conversation can be started with.
func (s *ConversationService) ListContacts(ctx context.Context, selfID string) ([]models.Contact, error) {
	if !validID(selfID) {
		return nil, ErrInvalidInput
	}

	relationships, err := s.relationships.ListForParticipant(ctx, selfID)
	if err != nil {
		return nil, err
	}

	partnerIDs := make([]string, 0, len(relationships))
	for _, relationship := range relationships {
		partnerID := relationship.ClientID
		if relationship.ClientID == selfID {
			partnerID = relationship.CoachID
		}
		partnerIDs = append(partnerIDs, partnerID)
	}
	profiles := s.lookupProfiles(ctx, partnerIDs)

	contacts := make([]models.Contact, 0, len(relationships))
	for i, relationship := range relationships {
		contact := models.Contact{
			PartnerID:          partnerIDs[i],
			RelationshipStatus: relationship.Status,
		}
		if profile, ok := profiles[partnerIDs[i]]; ok {
			contact.PartnerDisplayName = profile.DisplayName()
			contact.PartnerAvatar = profile.AvatarURL
		} else {
			contact.PartnerDisplayName = models.UnknownDisplayName
		}
		contacts = append(contacts, contact)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].PartnerDisplayName) < strings.ToLower(contacts[j].PartnerDisplayName)
	})
	return contacts, nil
}

// lookupProfiles resolves display data in one batched query. A failed lookup
// degrades to unknown partners instead of failing the caller.
func (s *ConversationService) lookupProfiles(ctx context.Context, ids []string) map[string]models.Profile {
	if len(ids) == 0 {
		return map[string]models.Profile{}
	}
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("lookup partner profiles: %v", err)
		return map[string]models.Profile{}
	}
	return profiles
}

// BuildConversations groups messages by partner. The newest message of each
// group is its preview; unread counts only messages partner sent to selfID.
// The result is ordered by last message time, newest first.
func BuildConversations(
	selfID string,
	messages []models.Message,
	profiles map[string]models.Profile,
) []models.Conversation {
	type group struct {
		last   models.Message
		unread int
	}

	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, message := range messages {
		if !message.Involves(selfID) {
			continue
		}
		partnerID := message.PartnerOf(selfID)

		g, ok := groups[partnerID]
		if !ok {
			g = &group{last: message}
			groups[partnerID] = g
			order = append(order, partnerID)
		} else if message.CreatedAt.After(g.last.CreatedAt) {
			g.last = message
		}

		if !message.IsRead && message.ReceiverID == selfID && message.SenderID == partnerID {
			g.unread++
		}
	}

	conversations := make([]models.Conversation, 0, len(order))
	for _, partnerID := range order {
		g := groups[partnerID]
		conversation := models.Conversation{
			PartnerID:          partnerID,
			PartnerDisplayName: models.UnknownDisplayName,
			LastMessageText:    g.last.Content,
			LastMessageTime:    g.last.CreatedAt,
			UnreadCount:        g.unread,
		}
		if profile, ok := profiles[partnerID]; ok {
			conversation.PartnerDisplayName = profile.DisplayName()
			conversation.PartnerAvatar = profile.AvatarURL
		}
		conversations = append(conversations, conversation)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		if !conversations[i].LastMessageTime.Equal(conversations[j].LastMessageTime) {
			return conversations[i].LastMessageTime.After(conversations[j].LastMessageTime)
		}
		return conversations[i].PartnerID < conversations[j].PartnerID
	})
	return conversations
}

func partnersOf(selfID string, messages []models.Message) []string {
	seen := make(map[string]struct{})
	partners := make([]string, 0)
	for _, message := range messages {
		if !message.Involves(selfID) {
			continue
		}
		partnerID := message.PartnerOf(selfID)
		if _, ok := seen[partnerID]; ok {
			continue
		}
		seen[partnerID] = struct{}{}
		partners = append(partners, partnerID)
	}
	return partners
}

func publishInsert(ctx context.Context, changes realtime.Publisher, table string, row any) {
	publishChange(ctx, changes, table, row, realtime.NewInsertEvent)
}

func publishUpdate(ctx context.Context, changes realtime.Publisher, table string, row any) {
	publishChange(ctx, changes, table, row, realtime.NewUpdateEvent)
}

func publishChange(
	ctx context.Context,
	changes realtime.Publisher,
	table string,
	row any,
	build func(table string, row any) (realtime.ChangeEvent, error),
) {
	event, err := build(table, row)
	if err != nil {
		log.Printf("build %s change event: %v", table, err)
		return
	}
	if err := changes.Publish(ctx, event); err != nil {
		log.Printf("publish %s change event: %v", table, err)
	}
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
