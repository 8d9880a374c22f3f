package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"smartscan/internal/attendance"
	"smartscan/internal/auth"
	"smartscan/internal/config"
	"smartscan/internal/decoder"
	"smartscan/internal/httpapi"
	"smartscan/internal/httpmiddleware"
	"smartscan/internal/model"
	"smartscan/internal/queue"
	"smartscan/internal/repository"
	"smartscan/internal/scansession"
	"smartscan/internal/store"
	"smartscan/internal/supabase"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// backend is the storage and identity pair selected by STORE_BACKEND.
type backend struct {
	students   repository.StudentRepository
	attendance repository.AttendanceRepository
	auth       auth.Authenticator
	health     map[string]httpapi.HealthCheck
	close      func() error
}

func openBackend(ctx context.Context, cfg config.App, redisClient *store.Redis) (*backend, error) {
	switch cfg.StoreBackend {
	case "supabase":
		client := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		log.Printf("using supabase backend at %s", cfg.SupabaseURL)
		return &backend{
			students:   repository.NewSupabaseStudents(client),
			attendance: repository.NewSupabaseAttendance(client),
			auth:       auth.NewSupabase(client),
			health:     map[string]httpapi.HealthCheck{},
			close:      func() error { return nil },
		}, nil

	case "postgres", "sqlite":
		var (
			db  *store.DB
			err error
		)
		if cfg.StoreBackend == "postgres" {
			db, err = store.NewDB(cfg.DatabaseURL)
		} else {
			db, err = store.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		repo := repository.NewSQL(db)
		if err := ensureOperator(ctx, repo.Operators(), cfg); err != nil {
			_ = db.Close()
			return nil, err
		}
		signer := auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
		health := map[string]httpapi.HealthCheck{
			"db": func(ctx context.Context) bool { return db.Client.PingContext(ctx) == nil },
		}
		var revoker auth.Revoker
		if redisClient.Healthy(ctx) {
			revoker = redisClient
			health["redis"] = redisClient.Healthy
		} else {
			log.Printf("warning: redis not reachable, sign-out will not revoke tokens")
		}
		log.Printf("using %s backend", cfg.StoreBackend)
		return &backend{
			students:   repo.Students(),
			attendance: repo.Attendance(),
			auth:       auth.NewLocal(repo.Operators(), signer, revoker),
			health:     health,
			close:      db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func ensureOperator(ctx context.Context, operators repository.OperatorRepository, cfg config.App) error {
	if cfg.OperatorEmail == "" || cfg.OperatorPassword == "" {
		return nil
	}
	_, err := operators.FindByEmail(ctx, cfg.OperatorEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := auth.CreateOperator(ctx, operators, cfg.OperatorEmail, cfg.OperatorPassword); err != nil {
		return err
	}
	log.Printf("created operator %s", cfg.OperatorEmail)
	return nil
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()
	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	be, err := openBackend(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.ScanQueueKey)
		be.health["redis"] = redisClient.Healthy
	}

	mode, err := model.ParseMode(cfg.DefaultMode)
	if err != nil {
		log.Printf("warning: %v, starting without a mode", err)
	}
	session := scansession.New(be.students, be.attendance,
		scansession.WithDebounce(cfg.ScanDebounce),
		scansession.WithSubmitTimeout(cfg.SubmitTimeout),
		scansession.WithMode(mode),
	)
	defer session.Stop()

	api := httpapi.New(httpapi.Deps{
		Session:    session,
		Camera:     decoder.NewLive(cfg.MaxScansPerSecond),
		Feed:       decoder.NewQueue(q),
		FeedQueue:  q,
		Attendance: attendance.NewService(be.students, be.attendance),
		Auth:       be.auth,
		Limiter:    httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Health:     be.health,

		MaxFrameBytes: int64(cfg.MaxFrameBytes),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
