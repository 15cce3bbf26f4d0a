package routes

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saeid-a/CoachSync/internal/config"
	"github.com/saeid-a/CoachSync/internal/events"
	"github.com/saeid-a/CoachSync/internal/handlers"
	"github.com/saeid-a/CoachSync/internal/middleware"
	"github.com/saeid-a/CoachSync/internal/realtime"
	"github.com/saeid-a/CoachSync/internal/repository"
	"github.com/saeid-a/CoachSync/internal/services"
	livews "github.com/saeid-a/CoachSync/internal/websocket"
)

// RegisterRoutes wires repositories, services and handlers onto app. The
// change feed and the websocket hub run in the background until ctx ends.
func RegisterRoutes(
	ctx context.Context,
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	publisher events.Publisher,
) error {
	profileRepo := repository.NewProfileRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	bookingRepo := repository.NewBookingRequestRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	store := repository.NewStore(db)

	broker := realtime.NewBroker(cfg.LiveQueueSize)
	changes, err := startChangeFeed(ctx, cfg, db, broker)
	if err != nil {
		return err
	}

	var storageService services.StorageService
	if cfg.StorageConfigured() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	notificationService := services.NewNotificationService(notificationRepo, changes, cfg.NotificationFeedLimit)
	conversationService := services.NewConversationService(messageRepo, profileRepo, relationshipRepo, changes)
	bookingService := services.NewBookingService(store, bookingRepo, profileRepo, notificationService, changes, publisher)
	decisionService := services.NewBookingDecisionService(notificationService, store, notificationService, profileRepo, changes, publisher)
	mediaService := services.NewMediaService(storageService, mediaRepo, relationshipRepo, profileRepo, notificationService, publisher)
	sessionService := services.NewSessionService(sessionRepo, profileRepo, notificationService, publisher)

	hub := livews.NewHub(cfg.LiveConnectionsPerUser)
	go hub.Run(ctx)

	conversationHandler := handlers.NewConversationHandler(conversationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, decisionService)
	bookingHandler := handlers.NewBookingHandler(bookingService, decisionService)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	liveHandler := handlers.NewLiveHandler(ctx, hub, broker, conversationService, notificationService, cfg.JWTSecret)

	if cfg.EnableMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := app.Group("/api")

	// The websocket authenticates through the query string, so it is
	// registered ahead of the bearer-only group.
	api.Use("/v1/ws", liveHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(liveHandler.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", conversationHandler.ListConversations)
	conversations.Get("/:partnerId/messages", conversationHandler.GetThread)
	conversations.Post("/:partnerId/messages", conversationHandler.SendMessage)
	authProtected.Get("/contacts", conversationHandler.ListContacts)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Put("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Put("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.Delete)
	notifications.Post("/:id/accept", notificationHandler.AcceptBooking)
	notifications.Post("/:id/reject", notificationHandler.RejectBooking)

	bookings := authProtected.Group("/booking-requests")
	bookings.Post("", bookingHandler.CreateBookingRequest)
	bookings.Get("", bookingHandler.ListBookingRequests)
	bookings.Post("/:id/accept", bookingHandler.AcceptBookingRequest)
	bookings.Post("/:id/reject", bookingHandler.RejectBookingRequest)

	authProtected.Post("/media", mediaHandler.UploadMedia)
	authProtected.Put("/sessions/:id/complete", sessionHandler.CompleteSession)

	return nil
}

// startChangeFeed picks the path table changes take into the broker and
// returns the publisher services should write through.
func startChangeFeed(
	ctx context.Context,
	cfg *config.Config,
	db *pgxpool.Pool,
	broker *realtime.Broker,
) (realtime.Publisher, error) {
	switch cfg.FeedDriver {
	case config.FeedDriverLocal:
		log.Printf("change feed: in-process")
		return realtime.NewLocalPublisher(broker), nil

	case config.FeedDriverPostgres:
		listener := realtime.NewPGListener(db, cfg.FeedChannel, broker)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("change feed listener stopped: %v", err)
			}
		}()
		log.Printf("change feed: postgres channel=%s", cfg.FeedChannel)
		return realtime.NoopPublisher{}, nil

	case config.FeedDriverRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("unable to reach redis: %w", err)
		}

		feed := realtime.NewRedisFeed(client, cfg.FeedChannel, broker)
		go func() {
			realtime.Supervise(ctx, "redis", broker, feed.Run)
			_ = client.Close()
		}()
		log.Printf("change feed: redis channel=%s", cfg.FeedChannel)
		return feed, nil

	default:
		return nil, fmt.Errorf("unknown feed driver %q", cfg.FeedDriver)
	}
}
