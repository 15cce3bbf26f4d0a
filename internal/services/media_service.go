package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/repository"
)

const maxMediaBytes = 50 << 20

type mediaCreator interface {
	Create(ctx context.Context, input repository.CreateClientMediaInput) (*models.ClientMedia, error)
}

type relationshipReader interface {
	GetByPair(ctx context.Context, coachID string, clientID string) (*models.CoachClientRelationship, error)
}

type MediaService struct {
	storage       StorageService
	media         mediaCreator
	relationships relationshipReader
	profiles      profileLookup
	notifier      notificationCreator
	events        events.Publisher
	now           func() time.Time
}

type UploadMediaInput struct {
	CoachID     string
	Title       string
	Description string
	Filename    string
	ContentType string
	Content     []byte
}

func NewMediaService(
	storage StorageService,
	media mediaCreator,
	relationships relationshipReader,
	profiles profileLookup,
	notifier notificationCreator,
	publisher events.Publisher,
) *MediaService {
	return &MediaService{
		storage:       storage,
		media:         media,
		relationships: relationships,
		profiles:      profiles,
		notifier:      notifier,
		events:        publisher,
		now:           time.Now,
	}
}

// UploadMedia stores a client's file for coach review and notifies the coach.
func (s *MediaService) UploadMedia(
	ctx context.Context,
	clientID string,
	input UploadMediaInput,
) (*models.ClientMedia, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	title := strings.TrimSpace(input.Title)
	if !validIDs(clientID, input.CoachID) || title == "" || len(input.Content) == 0 {
		return nil, ErrInvalidInput
	}
	if len(input.Content) > maxMediaBytes {
		return nil, ErrInvalidInput
	}

	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(input.Content)
	}
	mediaType, ok := mediaTypeOf(contentType)
	if !ok {
		return nil, ErrInvalidInput
	}

	if _, err := s.relationships.GetByPair(ctx, input.CoachID, clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	objectPath := fmt.Sprintf("%s/%d%s", clientID, s.now().UnixMilli(), path.Ext(input.Filename))
	if err := s.storage.UploadObject(ctx, objectPath, input.Content, contentType); err != nil {
		return nil, err
	}

	var description *string
	if trimmed := strings.TrimSpace(input.Description); trimmed != "" {
		description = &trimmed
	}

	media, err := s.media.Create(ctx, repository.CreateClientMediaInput{
		ClientID:    clientID,
		CoachID:     input.CoachID,
		FilePath:    objectPath,
		Title:       title,
		Description: description,
		MediaType:   mediaType,
		UploadedBy:  "client",
	})
	if err != nil {
		if deleteErr := s.storage.DeleteObject(ctx, objectPath); deleteErr != nil {
			log.Printf("remove orphaned media object %s: %v", objectPath, deleteErr)
		}
		return nil, err
	}

	clientName := lookupDisplayName(ctx, s.profiles, clientID, "A client")
	data := map[string]any{
		models.DataClientID: clientID,
		models.DataMediaID:  media.ID,
		models.DataTitle:    title,
	}
	notifyBestEffort(ctx, s.notifier, repository.CreateNotificationInput{
		UserID:  input.CoachID,
		Type:    models.NotificationNewMedia,
		Title:   "New Media Upload",
		Message: fmt.Sprintf("%s uploaded a new %s", clientName, mediaType),
		Data:    data,
	})
	publishDomainEvent(ctx, s.events, events.RoutingMediaUploaded, events.NewEnvelope(models.NotificationNewMedia, clientID, data))

	return media, nil
}

func mediaTypeOf(contentType string) (string, bool) {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return "video", true
	case strings.HasPrefix(contentType, "image/"):
		return "image", true
	default:
		return "", false
	}
}
