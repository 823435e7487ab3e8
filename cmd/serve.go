package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/desertthunder/roller/internal/jobs"
	"github.com/desertthunder/roller/internal/mailer"
	"github.com/desertthunder/roller/internal/repositories"
	"github.com/desertthunder/roller/internal/server"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/desertthunder/roller/internal/web"
	"github.com/urfave/cli/v3"
)

const (
	drainTimeout  = 30 * time.Second
	purgeInterval = time.Hour
)

// Serve runs the web application until ctx is cancelled, then drains the job queue.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.config.Log.File != "" {
		r.logger = shared.NewConfiguredLogger(r.config.Log)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	jobLogger := shared.WithLogger(r.logger, "component", "jobs")
	queue := jobs.NewQueueFromConfig(r.config.Jobs, jobLogger)
	queue.Start(context.WithoutCancel(ctx))
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := queue.Stop(drainCtx); err != nil {
			r.logger.Warn("job queue did not drain", "pending", queue.Pending(), "error", err)
		}
	}()

	m, err := mailer.New(r.config.Mail.From, r.config.Server.BaseURL,
		repositories.NewUserRepository(db), repositories.NewSubscriptionRepository(db))
	if err != nil {
		return fmt.Errorf("failed to load mail templates: %w", err)
	}

	opts := web.Options{
		Config:    r.config,
		DB:        db,
		Logger:    r.logger,
		Queue:     queue,
		Mailer:    m,
		Deliverer: mailer.NewDeliverer(r.config.Mail, r.logger),
	}
	if client := r.githubClient(); client != nil {
		opts.GitHub = client
	} else {
		r.logger.Warn("github.token is empty, issues will not be mirrored")
	}

	app, err := web.New(opts)
	if err != nil {
		return fmt.Errorf("failed to build web app: %w", err)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r.logger.Info("job queue started", "workers", queue.Workers())
	purge := jobs.NewPurgeSessionsJob(repositories.NewSessionRepository(db), jobLogger)
	go jobs.SchedulePurge(ctx, queue, purge, purgeInterval)

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(r.config.Server.BaseURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	return server.New(addr, app.Handler(), r.logger).Serve(ctx, ln)
}
