package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"eduplatform-backend/config"
	"eduplatform-backend/events"
	"eduplatform-backend/handler"
	"eduplatform-backend/internal/bootstrap"
	"eduplatform-backend/internal/superadmin"
	"eduplatform-backend/jwt"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/ops"
	"eduplatform-backend/scheduler"
	"eduplatform-backend/service"
)

func main() {
	flag.Parse()
	cfg := config.Load()
	log.EnsureLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		log.Logger.Fatal("failed connecting to database", zap.Error(err))
	}
	defer closeStore()

	c, pingCache, err := bootstrap.Cache(cfg)
	if err != nil {
		log.Logger.Fatal("failed setting up cache", zap.Error(err))
	}

	blobs, filesDir, err := bootstrap.Blobs(ctx, cfg)
	if err != nil {
		log.Logger.Fatal("failed setting up blob storage", zap.Error(err))
	}

	var sender mail.Sender
	if cfg.MailTransport == "queue" {
		e, err := events.Connect(cfg.RabbitMQConnString)
		if err != nil {
			log.Logger.Fatal("failed connecting to rabbitmq", zap.Error(err))
		}
		defer e.Close()

		q, err := events.NewMailQueue(e)
		if err != nil {
			log.Logger.Fatal("failed opening mail queue", zap.Error(err))
		}
		defer q.Close()
		sender = q
	} else {
		sender, err = bootstrap.Sender(cfg)
		if err != nil {
			log.Logger.Fatal("failed setting up mail", zap.Error(err))
		}
	}

	templates, err := mail.LoadTemplates(cfg.FrontendURL)
	if err != nil {
		log.Logger.Fatal("failed loading mail templates", zap.Error(err))
	}

	if cfg.SuperAdminEmail != "" {
		if _, _, err := superadmin.Ensure(ctx, st, cfg.SuperAdminEmail, cfg.SuperAdminPassword, time.Now().UTC()); err != nil {
			log.Logger.Fatal("failed provisioning super admin", zap.Error(err))
		}
	}

	tokens := jwt.NewJWT([]byte(cfg.JWTKey), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	services := service.New(&service.Deps{
		Store:     st,
		Cache:     c,
		Blobs:     blobs,
		Mail:      sender,
		Templates: templates,
		JWT:       tokens,
		Settings: service.Settings{
			TempPasswordTTL:  cfg.TempPasswordTTL,
			TempStudentTTL:   cfg.TempStudentTTL,
			PasswordResetTTL: cfg.PasswordResetTTL,
			FrontendURL:      cfg.FrontendURL,
		},
		Now: func() time.Time { return time.Now().UTC() },
	})

	jobs := scheduler.New(ctx)
	if err := jobs.Add(scheduler.Job{
		Name:     "subscription-sweep",
		Schedule: cfg.SweepSchedule,
		Timeout:  10 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := services.Schools.ExpireSubscriptions(ctx)
			return err
		},
	}); err != nil {
		log.Logger.Fatal("invalid sweep schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}
	jobs.Start()
	defer jobs.Stop()

	health := ops.New(map[string]ops.Check{
		"store": st.Ping,
		"cache": pingCache,
	})
	go health.Watch(ctx, 15*time.Second)

	opsLis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%s", cfg.OpsPort))
	if err != nil {
		log.Logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		if err := health.Serve(opsLis); err != nil {
			log.Logger.Error("ops server stopped", zap.Error(err))
		}
	}()

	api := handler.New(handler.Options{
		Services:       services,
		JWT:            tokens,
		Ping:           st.Ping,
		FilesDir:       filesDir,
		RateLimitRPS:   float64(cfg.RateLimitRPS),
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", cfg.Port),
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	api.StartCleanup(ctx, 5*time.Minute)

	go func() {
		log.Logger.Info(fmt.Sprintf("Listening on port: %s", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Fatal("couldn't serve http", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Logger.Error("http shutdown failed", zap.Error(err))
	}
	health.Stop()
}
