package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ernous/BoxChat/internal/config"
	"github.com/Ernous/BoxChat/internal/handler"
	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/push"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/service"
	"github.com/Ernous/BoxChat/internal/startup"
	"github.com/Ernous/BoxChat/internal/ws"
	"github.com/Ernous/BoxChat/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrateOnly && !*dev {
		return
	}

	// Anyone shown online at boot is a ghost from the previous run. Hidden
	// users chose that status, leave them alone.
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := pool.Exec(resetCtx, "UPDATE users SET presence_status = 'offline' WHERE presence_status IN ('online', 'away')"); err != nil {
		logger.Errorf("reset presence: %v", err)
	}
	resetCancel()
	logger.Info("database connected, migrations applied")

	sessionStore := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
	defer sessionStore.Close()

	vapid, err := push.EnsureVAPIDKeys(os.Getenv("VAPID_KEYS_FILE"))
	if err != nil {
		logger.Errorf("vapid keys: %v", err)
		os.Exit(1)
	}
	cfg.PushVAPIDPublicKey = vapid.PublicKey
	notifier := push.NewNotifier(sessionStore.Raw(), vapid, cfg.PushSubscriber)

	userRepo := repository.NewUserRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	snapRepo := repository.NewSnapshotRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	reactRepo := repository.NewReactionRepository(pool)
	readRepo := repository.NewReadRepository(pool)
	friendRepo := repository.NewFriendRepository(pool)
	contentRepo := repository.NewContentRepository(pool)

	hub := ws.NewHub(nil, cfg.MaxWSConnections)

	accountSvc := service.NewAccountService(userRepo, friendRepo, hub)
	friendSvc := service.NewFriendService(friendRepo, userRepo)
	roomSvc := service.NewRoomService(roomRepo, roleRepo, snapRepo, friendRepo, userRepo, hub)
	unreadSvc := service.NewUnreadService(snapRepo, roomRepo, readRepo, msgRepo, hub)
	msgSvc := service.NewMessageService(snapRepo, roomRepo, msgRepo, reactRepo, roleRepo, userRepo, hub, notifier)
	contentSvc := service.NewContentService(contentRepo)
	hub.SetDispatcher(service.NewSocketDispatcher(msgSvc, unreadSvc, roomSvc, accountSvc))

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	roomH := handler.NewRoomHandler(roomSvc)
	msgH := handler.NewMessageHandler(msgSvc, unreadSvc)
	friendH := handler.NewFriendHandler(friendSvc)
	userH := handler.NewUserHandler(accountSvc, sessionStore)
	contentH := handler.NewContentHandler(contentSvc)
	pushH := handler.NewPushHandler(notifier, cfg.PushVAPIDPublicKey)
	internalH := handler.NewInternalHandler(accountSvc)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Never compress WebSocket responses: the wrapped ResponseWriter loses
	// http.Hijacker and the upgrade fails with a 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-Id", "X-Timestamp", "X-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/push/vapid-key", pushH.VAPIDPublicKey)

	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOnly)
		r.Post("/internal/users", internalH.ProvisionUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(sessionStore))

		r.Get("/api/users/me", userH.Me)
		r.Put("/api/users/me", userH.UpdateProfile)
		r.Put("/api/users/me/presence", userH.SetPresenceMode)
		r.Delete("/api/users/me", userH.DeleteAccount)
		r.Get("/api/users/search", userH.Search)
		r.Get("/api/users/{username}", userH.GetByUsername)

		r.Get("/api/friends", friendH.ListFriends)
		r.Get("/api/friends/requests", friendH.ListRequests)
		r.Post("/api/friends/requests", friendH.SendRequest)
		r.Post("/api/friends/requests/{requestId}/accept", friendH.Accept)
		r.Post("/api/friends/requests/{requestId}/decline", friendH.Decline)
		r.Delete("/api/friends/{userId}", friendH.Unfriend)

		r.Get("/api/rooms", roomH.ListRooms)
		r.Post("/api/rooms", roomH.CreateRoom)
		r.Get("/api/rooms/explore", roomH.ExplorePublicRooms)
		r.Post("/api/rooms/dm", roomH.OpenDM)
		r.Post("/api/rooms/join/{token}", roomH.JoinByInvite)
		r.Get("/api/rooms/{id}", roomH.GetRoom)
		r.Put("/api/rooms/{id}", roomH.UpdateRoom)
		r.Delete("/api/rooms/{id}", roomH.DeleteRoom)
		r.Post("/api/rooms/{id}/invite", roomH.GenerateInvite)
		r.Post("/api/rooms/{id}/join", roomH.JoinPublicRoom)
		r.Post("/api/rooms/{id}/leave", roomH.LeaveRoom)
		r.Get("/api/rooms/{id}/members", roomH.ListMembers)
		r.Delete("/api/rooms/{id}/members/{userId}", roomH.KickMember)
		r.Post("/api/rooms/{id}/bans/{userId}", roomH.BanMember)
		r.Get("/api/rooms/{id}/channels", roomH.ListChannels)
		r.Post("/api/rooms/{id}/channels", roomH.CreateChannel)
		r.Get("/api/rooms/{id}/roles", roomH.ListRoles)
		r.Post("/api/rooms/{id}/roles", roomH.CreateRole)

		r.Get("/api/channels", roomH.ListAccessibleChannels)
		r.Put("/api/channels/{channelId}", roomH.UpdateChannel)
		r.Delete("/api/channels/{channelId}", roomH.DeleteChannel)
		r.Get("/api/channels/{channelId}/messages", msgH.GetMessages)
		r.Post("/api/channels/{channelId}/messages", msgH.SendMessage)
		r.Post("/api/channels/{channelId}/read", msgH.MarkRead)
		r.Get("/api/channels/{channelId}/unread", msgH.GetUnread)
		r.Post("/api/channels/unread", msgH.GetUnreadBatch)

		r.Put("/api/messages/{messageId}", msgH.EditMessage)
		r.Delete("/api/messages/{messageId}", msgH.DeleteMessage)
		r.Post("/api/messages/{messageId}/reactions", msgH.ToggleReaction)
		r.Post("/api/messages/{messageId}/forward", msgH.ForwardMessage)

		r.Put("/api/roles/{roleId}", roomH.UpdateRole)
		r.Delete("/api/roles/{roleId}", roomH.DeleteRole)
		r.Post("/api/roles/{roleId}/members/{userId}", roomH.AssignRole)
		r.Delete("/api/roles/{roleId}/members/{userId}", roomH.UnassignRole)
		r.Post("/api/roles/{roleId}/mention-permissions", roomH.AddMentionPermission)
		r.Delete("/api/roles/{roleId}/mention-permissions/{sourceRoleId}", roomH.RemoveMentionPermission)

		r.Get("/api/stickers/packs", contentH.ListStickerPacks)
		r.Post("/api/stickers/packs", contentH.CreateStickerPack)
		r.Delete("/api/stickers/packs/{packId}", contentH.DeleteStickerPack)
		r.Get("/api/stickers/packs/{packId}", contentH.ListStickers)
		r.Post("/api/stickers/packs/{packId}", contentH.AddSticker)
		r.Delete("/api/stickers/packs/{packId}/stickers/{stickerId}", contentH.RemoveSticker)

		r.Get("/api/music", contentH.ListMusic)
		r.Post("/api/music", contentH.AddMusic)
		r.Delete("/api/music/{trackId}", contentH.RemoveMusic)

		r.Post("/api/push/subscribe", pushH.Subscribe)
		r.Delete("/api/push/subscribe", pushH.Unsubscribe)

		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := fs.ReadDir(migrations.Files, ".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(migrations.Files, name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "boxchat"
		password = "boxchat_secret"
		database = "boxchat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
