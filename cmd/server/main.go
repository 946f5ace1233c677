package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"chatrelay/internal/chat"
	"chatrelay/internal/clock"
	"chatrelay/internal/config"
	"chatrelay/internal/database"
	"chatrelay/internal/handler"
	"chatrelay/internal/presence"
	"chatrelay/internal/store"
	"chatrelay/internal/store/badgerstore"
	"chatrelay/internal/store/memory"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  .env file not found, using default values: %v", err)
	}

	// 環境変数を読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	clk := clock.Real{}
	registry, messages, closer, err := openStores(cfg, clk)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 在席スイーパーを開始
	sweeper := presence.NewSweeper(registry, messages, clk, cfg.SweepInterval, cfg.ParticipantTTL)
	go sweeper.Run(ctx)

	h := handler.New(chat.NewService(registry, messages), cfg)
	router := h.SetupRouter()

	// CORS対応
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", cfg.IdentityHeader},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Println("========================================")
	fmt.Println("  Chat Relay API Server")
	fmt.Println("========================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Server: http://localhost:%s\n", cfg.ServerPort)
	fmt.Printf("  Storage: %s\n", cfg.Storage)
	if cfg.Storage == config.StorageMySQL {
		fmt.Printf("  Database: %s@%s:%s/%s\n", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	fmt.Printf("  Sweep: every %s, TTL %s\n", cfg.SweepInterval, cfg.ParticipantTTL)
	fmt.Printf("  Allowed Origins: %v\n", cfg.AllowedOrigins)
	fmt.Println("========================================")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("❌ Shutdown error: %v", err)
		}
	}()

	log.Println("🚀 Server started successfully")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("❌ Server error: %v", err)
	}
	log.Println("👋 Server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStores builds the registry and message log for the configured backend.
func openStores(cfg config.Config, clk clock.Clock) (store.ParticipantRegistry, store.MessageStore, io.Closer, error) {
	switch cfg.Storage {
	case config.StorageMySQL:
		db, err := database.Init(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return database.NewParticipantRepository(db, clk), database.NewMessageRepository(db, clk), db, nil

	case config.StorageBadger:
		db, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, nil, err
		}
		messages, err := badgerstore.NewMessageStore(db, clk)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		closer := closerFunc(func() error {
			return errors.Join(messages.Close(), db.Close())
		})
		return badgerstore.NewRegistry(db, clk), messages, closer, nil

	default:
		noop := closerFunc(func() error { return nil })
		return memory.NewRegistry(clk), memory.NewMessageStore(clk), noop, nil
	}
}
