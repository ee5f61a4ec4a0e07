// Command server runs the membership API and its background worker.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/stagepass/api/internal/app"
	"github.com/stagepass/api/internal/config"
	httpserver "github.com/stagepass/api/internal/infra/http"
	"github.com/stagepass/api/internal/infra/http/handler"
	"github.com/stagepass/api/internal/infra/jobs"
	"github.com/stagepass/api/internal/infra/postgres"
	redisinfra "github.com/stagepass/api/internal/infra/redis"
	"github.com/stagepass/api/internal/tracing"
	"github.com/stagepass/api/pkg/email"
	"github.com/stagepass/api/pkg/jwt"
	"github.com/stagepass/api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		logger.NewDefault().Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.SetDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("failed to shut down tracing", "error", err)
		}
	}()

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient, err := redisinfra.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	membershipRepo := postgres.NewMembershipRepository(db)
	organizationRepo := postgres.NewOrganizationRepository(db)
	userRepo := postgres.NewUserRepository(db)

	var sender email.Sender
	smtpSender := email.NewSMTPSender(email.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		User:       cfg.SMTP.User,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		FromName:   cfg.SMTP.FromName,
		TLS:        cfg.SMTP.TLS,
		SkipVerify: cfg.SMTP.SkipVerify,
		Timeout:    cfg.SMTP.Timeout,
	})
	sender = smtpSender
	if !smtpSender.IsConfigured() && !cfg.IsProduction() {
		log.Warn("SMTP not configured, using no-op email sender")
		sender = email.NewNoOpSender()
	}

	emailService := app.NewEmailService(sender, cfg.Invite, cfg.App.Name, log)
	invitePolicy := redisinfra.NewInvitePolicy(redisClient)
	dispatcher := app.NewInvitationDispatcher(membershipRepo, organizationRepo, invitePolicy, emailService, log)

	jobClient := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	defer jobClient.Close()

	membershipService := app.NewMembershipService(membershipRepo, organizationRepo, userRepo, jobClient, log)
	gate := app.NewAuthorizationGate(membershipRepo, organizationRepo, app.DefaultGatePolicy(), log)
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	server := httpserver.NewServer(cfg, httpserver.Deps{
		Memberships: handler.NewMembershipHandler(membershipService, gate, log),
		Health:      handler.NewHealthHandler(db, redisClient),
		Tokens:      tokens,
	}, log)

	worker := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
	}, dispatcher, log)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(worker.Start)
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		worker.Stop()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
