package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/saeid-a/CoachSync/internal/repository"
)

var errStoreDown = errors.New("store down")

var baseTime = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []models.Message
	createErr error
	markErr   error
	clock     time.Time
}

func (s *fakeMessageStore) seed(senderID, receiverID, content string, isRead bool, at time.Time) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     isRead,
		CreatedAt:  at,
	}
	s.messages = append(s.messages, message)
	return message
}

func (s *fakeMessageStore) Create(_ context.Context, senderID, receiverID, content string) (*models.Message, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.IsZero() {
		s.clock = baseTime.Add(24 * time.Hour)
	}
	s.clock = s.clock.Add(time.Second)
	message := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.clock,
	}
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *fakeMessageStore) ListForParticipant(_ context.Context, userID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0)
	for _, message := range s.messages {
		if message.Involves(userID) {
			out = append(out, message)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeMessageStore) ListThread(_ context.Context, userID, partnerID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0)
	for _, message := range s.messages {
		if message.Involves(userID) && message.Involves(partnerID) {
			out = append(out, message)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeMessageStore) MarkThreadRead(_ context.Context, readerID, partnerID string) (int64, error) {
	if s.markErr != nil {
		return 0, s.markErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.messages {
		message := &s.messages[i]
		if message.SenderID == partnerID && message.ReceiverID == readerID && !message.IsRead {
			message.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeProfiles struct {
	profiles map[string]models.Profile
	err      error
}

func newFakeProfiles(entries ...models.Profile) *fakeProfiles {
	profiles := make(map[string]models.Profile, len(entries))
	for _, entry := range entries {
		profiles[entry.ID] = entry
	}
	return &fakeProfiles{profiles: profiles}
}

func (p *fakeProfiles) GetByIDs(_ context.Context, ids []string) (map[string]models.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]models.Profile, len(ids))
	for _, id := range ids {
		if profile, ok := p.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func profile(id, first, last string) models.Profile {
	return models.Profile{ID: id, FirstName: &first, LastName: &last}
}

type fakeRelationships struct {
	mu   sync.Mutex
	rows map[string]*models.CoachClientRelationship
}

func newFakeRelationships() *fakeRelationships {
	return &fakeRelationships{rows: make(map[string]*models.CoachClientRelationship)}
}

func pairKey(coachID, clientID string) string {
	return coachID + "/" + clientID
}

func (r *fakeRelationships) put(coachID, clientID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(coachID, clientID)
	if existing, ok := r.rows[key]; ok {
		existing.Status = status
		return
	}
	r.rows[key] = &models.CoachClientRelationship{
		ID:        uuid.NewString(),
		CoachID:   coachID,
		ClientID:  clientID,
		Status:    status,
		CreatedAt: baseTime,
	}
}

func (r *fakeRelationships) GetByPair(_ context.Context, coachID, clientID string) (*models.CoachClientRelationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[pairKey(coachID, clientID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (r *fakeRelationships) ListForParticipant(_ context.Context, userID string) ([]models.CoachClientRelationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CoachClientRelationship, 0)
	for _, row := range r.rows {
		if row.CoachID == userID || row.ClientID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRelationships) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeNotificationStore struct {
	mu        sync.Mutex
	rows      []models.Notification
	createErr error
	clock     time.Time
}

func (s *fakeNotificationStore) Create(_ context.Context, input repository.CreateNotificationInput) (*models.Notification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.IsZero() {
		s.clock = baseTime
	}
	s.clock = s.clock.Add(time.Second)
	notification := models.Notification{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Data:      input.Data,
		CreatedAt: s.clock,
	}
	s.rows = append(s.rows, notification)
	return &notification, nil
}

func (s *fakeNotificationStore) GetByIDForUser(_ context.Context, id, userID string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.UserID == userID {
			copied := row
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeNotificationStore) ListRecent(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].UserID == userID {
			s.rows[i].IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.rows {
		if s.rows[i].UserID == userID && !s.rows[i].IsRead {
			s.rows[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (s *fakeNotificationStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].UserID == userID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *fakeNotificationStore) markBookingRequestRead(coachID, bookingRequestID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := make([]models.Notification, 0)
	for i := range s.rows {
		row := &s.rows[i]
		if row.UserID != coachID || row.Type != models.NotificationBookingRequest || row.IsRead {
			continue
		}
		if id, _ := row.DataString(models.DataBookingRequestID); id != bookingRequestID {
			continue
		}
		row.IsRead = true
		updated = append(updated, *row)
	}
	return updated
}

func (s *fakeNotificationStore) forUser(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

// fakeBookingStore keeps booking requests and relationships in memory. A
// transaction that returns an error restores the state it started from.
type fakeBookingStore struct {
	mu            sync.Mutex
	requests      map[string]*models.BookingRequest
	relationships *fakeRelationships
	notifications *fakeNotificationStore
	txCalls       int
	upsertErr     error
}

func newFakeBookingStore(relationships *fakeRelationships, notifications *fakeNotificationStore) *fakeBookingStore {
	return &fakeBookingStore{
		requests:      make(map[string]*models.BookingRequest),
		relationships: relationships,
		notifications: notifications,
	}
}

func (s *fakeBookingStore) addRequest(clientID, coachID, status string) *models.BookingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	request := &models.BookingRequest{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		CoachID:   coachID,
		Status:    status,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	s.requests[request.ID] = request
	copied := *request
	return &copied
}

func (s *fakeBookingStore) request(id string) models.BookingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.requests[id]
}

func (s *fakeBookingStore) CreateBookingRequest(ctx context.Context, input repository.CreateBookingRequestInput) (*models.BookingRequest, error) {
	if _, err := s.relationships.GetByPair(ctx, input.CoachID, input.ClientID); errors.Is(err, pgx.ErrNoRows) {
		s.relationships.put(input.CoachID, input.ClientID, models.RelationshipStatusPending)
	}
	request := s.addRequest(input.ClientID, input.CoachID, models.BookingStatusPending)
	s.mu.Lock()
	s.requests[request.ID].PackageID = input.PackageID
	s.requests[request.ID].RequestedSessions = input.RequestedSessions
	s.requests[request.ID].Message = input.Message
	s.mu.Unlock()
	created := s.request(request.ID)
	return &created, nil
}

func (s *fakeBookingStore) ListByCoach(_ context.Context, coachID string, limit, offset int) ([]models.BookingRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.BookingRequest, 0)
	for _, request := range s.requests {
		if request.CoachID == coachID {
			all = append(all, *request)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= total {
		return []models.BookingRequest{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *fakeBookingStore) ListByClient(_ context.Context, clientID string) ([]models.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BookingRequest, 0)
	for _, request := range s.requests {
		if request.ClientID == clientID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (s *fakeBookingStore) RunBookingTx(ctx context.Context, fn func(tx repository.BookingTx) error) error {
	s.mu.Lock()
	s.txCalls++
	requests := make(map[string]models.BookingRequest, len(s.requests))
	for id, request := range s.requests {
		requests[id] = *request
	}
	s.mu.Unlock()

	s.relationships.mu.Lock()
	relationships := make(map[string]models.CoachClientRelationship, len(s.relationships.rows))
	for key, row := range s.relationships.rows {
		relationships[key] = *row
	}
	s.relationships.mu.Unlock()

	s.notifications.mu.Lock()
	notifications := append([]models.Notification(nil), s.notifications.rows...)
	s.notifications.mu.Unlock()

	if err := fn(fakeBookingTx{store: s}); err != nil {
		s.mu.Lock()
		s.requests = make(map[string]*models.BookingRequest, len(requests))
		for id, request := range requests {
			restored := request
			s.requests[id] = &restored
		}
		s.mu.Unlock()

		s.relationships.mu.Lock()
		s.relationships.rows = make(map[string]*models.CoachClientRelationship, len(relationships))
		for key, row := range relationships {
			restored := row
			s.relationships.rows[key] = &restored
		}
		s.relationships.mu.Unlock()

		s.notifications.mu.Lock()
		s.notifications.rows = notifications
		s.notifications.mu.Unlock()
		return err
	}
	return nil
}

type fakeBookingTx struct {
	store *fakeBookingStore
}

func (t fakeBookingTx) GetBookingRequestForUpdate(_ context.Context, id string) (*models.BookingRequest, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	request, ok := t.store.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (t fakeBookingTx) UpdateBookingStatusIfCurrent(_ context.Context, id, currentStatus, nextStatus string) (*models.BookingRequest, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	request, ok := t.store.requests[id]
	if !ok || request.Status != currentStatus {
		return nil, pgx.ErrNoRows
	}
	request.Status = nextStatus
	request.UpdatedAt = request.UpdatedAt.Add(time.Minute)
	copied := *request
	return &copied, nil
}

func (t fakeBookingTx) UpsertActiveRelationship(ctx context.Context, coachID, clientID string) (*models.CoachClientRelationship, error) {
	if t.store.upsertErr != nil {
		return nil, t.store.upsertErr
	}
	t.store.relationships.put(coachID, clientID, models.RelationshipStatusActive)
	return t.store.relationships.GetByPair(ctx, coachID, clientID)
}

func (t fakeBookingTx) MarkBookingNotificationsRead(_ context.Context, coachID, bookingRequestID string) ([]models.Notification, error) {
	return t.store.notifications.markBookingRequestRead(coachID, bookingRequestID), nil
}

type recordingChanges struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (p *recordingChanges) Publish(_ context.Context, event realtime.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingChanges) operations(table string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		if event.Table == table {
			out = append(out, event.Operation)
		}
	}
	return out
}

func (p *recordingChanges) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Table)
	}
	return out
}

type recordingEvents struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingEvents) Publish(_ context.Context, routingKey string, _ events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingEvents) Close() error { return nil }

func (p *recordingEvents) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeStorage struct {
	uploaded  map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: make(map[string][]byte)}
}

func (s *fakeStorage) UploadObject(_ context.Context, objectPath string, content []byte, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploaded[objectPath] = content
	return nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectPath string) error {
	s.deleted = append(s.deleted, objectPath)
	delete(s.uploaded, objectPath)
	return nil
}

type fakeMediaStore struct {
	created   []repository.CreateClientMediaInput
	createErr error
}

func (s *fakeMediaStore) Create(_ context.Context, input repository.CreateClientMediaInput) (*models.ClientMedia, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	return &models.ClientMedia{
		ID:          uuid.NewString(),
		ClientID:    input.ClientID,
		CoachID:     input.CoachID,
		FilePath:    input.FilePath,
		Title:       input.Title,
		Description: input.Description,
		MediaType:   input.MediaType,
		UploadedBy:  input.UploadedBy,
		CreatedAt:   baseTime,
	}, nil
}

type fakeSessionStore struct {
	sessions map[string]*models.Session
}

func (s *fakeSessionStore) GetByID(_ context.Context, sessionID string) (*models.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) UpdateStatusIfCurrent(_ context.Context, sessionID, currentStatus, nextStatus string) (*models.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok || session.Status != currentStatus {
		return nil, pgx.ErrNoRows
	}
	session.Status = nextStatus
	copied := *session
	return &copied, nil
}
