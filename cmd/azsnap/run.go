package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"time"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/log"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"github.com/CZERTAINLY/azsnap/internal/publish"
	"github.com/CZERTAINLY/azsnap/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// session holds what every run command sets up before the engine starts.
type session struct {
	run      model.RunConfig
	az       azcli.Az
	runner   azcli.Runner
	tracer   trace.Tracer
	logFile  *os.File
	shutdown tracing.ShutdownFunc
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// newSession creates the log directory and the run log, switches slog to write
// into it and sets up tracing.
func newSession(ctx context.Context, action, tag string) (context.Context, *session, error) {
	run := model.NewRunConfig(config, action, currentUser(), tag, time.Now())

	f, err := log.OpenRunLog(run.LogFile)
	if err != nil {
		return ctx, nil, err
	}
	slog.SetDefault(log.NewRun(config.Verbose, f))
	ctx = log.ContextAttrs(ctx, slog.Group("azsnap",
		slog.String("cmd", action),
		slog.Int("pid", os.Getpid()),
	))

	tp, shutdown, err := tracing.Setup(ctx, config.Tracing, version())
	if err != nil {
		_ = f.Close()
		return ctx, nil, err
	}

	slog.InfoContext(ctx, "run configured",
		"run_id", run.ID,
		"user", run.User,
		"tag", run.Tag,
		"log_file", run.LogFile,
	)
	return ctx, &session{
		run: run,
		az: azcli.Az{
			Binary:  config.Az.Binary,
			Timeout: config.Az.Timeout,
		},
		runner:   azcli.NewRunner(nil).WithRetries(config.Az.MaxRetries, config.Az.RetryDelay),
		tracer:   tp.Tracer(tracing.ServiceName),
		logFile:  f,
		shutdown: shutdown,
	}, nil
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		slog.Warn("flushing traces failed", "error", err)
	}
	slog.SetDefault(log.New(config.Verbose))
	_ = s.logFile.Close()
}

// publish uploads the report files when a blob connection string is configured.
// Upload problems are logged, the local files stay the source of truth.
func (s *session) publish(ctx context.Context, files ...string) {
	if config.Publish.ConnectionString == "" {
		return
	}
	p, err := publish.New(config.Publish)
	if err != nil {
		slog.ErrorContext(ctx, "publishing reports failed", "error", err)
		return
	}
	urls, err := p.PublishRun(ctx, s.run, files...)
	if err != nil {
		slog.ErrorContext(ctx, "publishing reports failed", "error", err)
	}
	for _, u := range urls {
		fmt.Printf("Published: %s\n", u)
	}
}

func printRuntime(s outcome.RunSummary) {
	fmt.Printf("Runtime: %.2f seconds\n", s.Finished.Sub(s.Started).Seconds())
}
