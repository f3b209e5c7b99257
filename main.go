package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/mulliganw/ahsoftwareclub-website/config"
	"github.com/mulliganw/ahsoftwareclub-website/modules/activity"
	"github.com/mulliganw/ahsoftwareclub-website/modules/api"
	"github.com/mulliganw/ahsoftwareclub-website/modules/auth"
	"github.com/mulliganw/ahsoftwareclub-website/modules/broadcast"
	"github.com/mulliganw/ahsoftwareclub-website/modules/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/store"
)

func main() {
	log.Println("=== Room Chat Server - Fiber + WebSocket ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	storeModule := store.NewModule(cfg.DBPath, cfg.DBDebug, logger.WithModule("store"))
	broadcastModule := broadcast.NewModule(broadcast.Options{
		QueueSize:             cfg.SubscriberQueueSize,
		SlowSubscriberTimeout: cfg.SlowSubscriberTimeout,
	}, logger.WithModule("broadcast"))
	authModule := auth.NewModule(auth.JWTConfig{
		SecretKey:     cfg.JWTSecret,
		TokenDuration: cfg.TokenTTL,
		Issuer:        cfg.JWTIssuer,
	}, logger.WithModule("auth"))
	chatModule := chat.NewModule(
		storeModule,
		authModule,
		broadcastModule.Bus(),
		chat.Options{MaxMessageLength: cfg.MaxMessageLength},
		logger.WithModule("chat"),
	)
	activityModule := activity.NewModule(logger.WithModule("activity"))
	apiModule := api.NewModule(api.Config{
		Addr:               cfg.Addr(),
		MaxFrameBytes:      cfg.MaxFrameBytes,
		MessagesPerSecond:  cfg.MessagesPerSecond,
		MessageBurst:       cfg.MessageBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, chatModule.Service(), activityModule, logger.WithModule("api"))

	// The chat service and module health are not exposed via ServiceContainer,
	// so they are injected here.
	apiModule.SetHealthSources(storeModule, broadcastModule, authModule, chatModule, activityModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - store: SQLite persistence (ServiceProviderModule)
	// - broadcast: in-process room fan-out
	// - auth: guest identities (ServiceProviderModule)
	// - chat: room session core (EventEmitterModule)
	// - activity: room counters (EventConsumerModule)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on store and auth)
	app.Register(storeModule)
	app.Register(broadcastModule)
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("  - Database: %s", cfg.DBPath)
	log.Printf("  - Subscriber queue: %d (slow subscriber timeout %s)", cfg.SubscriberQueueSize, cfg.SlowSubscriberTimeout)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                        - Health check")
	log.Println("  POST   /api/v1/auth/guest             - Issue a guest token")
	log.Println("  GET    /api/v1/rooms                  - List rooms")
	log.Println("  GET    /api/v1/rooms/:name/history    - Message history")
	log.Println("  GET    /api/v1/rooms/:name/members    - Connected members")
	log.Println("  GET    /api/v1/rooms/:name/authors    - Users who posted")
	log.Println("  GET    /api/v1/rooms/:name/activity   - Room activity counters")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws/chat/:room):", cfg.Port)
	log.Println("  Connect with: ws://localhost:" + cfg.Port + "/ws/chat/lobby?token=<guest token>")
	log.Println("  Inbound: message, file  Outbound: chat_message, chat_connect, chat_disconnect, chat_file, chat_load")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
