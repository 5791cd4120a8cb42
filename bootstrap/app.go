package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/flowkit/component"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/logger"
)

// DefaultGracefulTimeout bounds the whole shutdown sequence.
const DefaultGracefulTimeout = 15 * time.Second

// App drives one flowkit binary through start, run and shutdown. C is the
// binary's config type, usually a struct embedding config.ServiceConfig.
type App[C config.Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	hooks           map[phase][]Hook
}

// NewApp defaults and validates cfg, then sets up logging. Without
// WithLogger the global logger is initialized from cfg's logging section.
// The pipeline drain timeout becomes the per-component stop bound.
func NewApp[C config.Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()

	set := settings{gracefulTimeout: DefaultGracefulTimeout}
	for _, opt := range opts {
		opt(&set)
	}
	if set.logger == nil {
		logger.Init(svc.Logging)
		set.logger = logger.GetGlobalLogger()
	}

	reg := component.NewRegistry()
	reg.SetStopTimeout(svc.Pipeline.DrainTimeout)

	return &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Components:      reg,
		Logger:          set.logger,
		gracefulTimeout: set.gracefulTimeout,
		hooks:           map[phase][]Hook{},
	}, nil
}

// RegisterComponent appends c to the start order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck fails when any component reports something other than healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			entry += " (" + h.Message + ")"
		}
		bad = append(bad, entry)
	}
	if len(bad) > 0 {
		return fmt.Errorf("not ready: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts everything and blocks until SIGINT, SIGTERM or ctx is done,
// then shuts down. It suits binaries that serve until told to stop.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Info("application ready")
	<-sigCtx.Done()
	a.Logger.Info("shutdown requested", logger.Fields("cause", context.Cause(sigCtx).Error()))
	return a.shutdown()
}

// RunTask starts everything, runs task and shuts down once task returns.
// The task's context is canceled on SIGINT or SIGTERM. A task error takes
// precedence over shutdown errors.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	stop()

	if err := a.shutdown(); taskErr == nil {
		return err
	}
	return taskErr
}

// Shutdown runs the stop hooks and stops components. Use it when the
// caller drives the lifecycle itself.
func (a *App[C]) Shutdown(context.Context) error {
	return a.shutdown()
}

// start brings components up and runs the start and ready hooks. A failing
// hook stops the components again.
func (a *App[C]) start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := a.run(ctx, phaseStart); err != nil {
		return errors.Join(err, a.Components.StopAll(ctx))
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.MergeWithError(nil, err))
	}
	if err := a.run(ctx, phaseReady); err != nil {
		return errors.Join(err, a.Components.StopAll(ctx))
	}
	a.Logger.Info("application started", logger.DurationFields("startup", time.Since(began)))
	return nil
}

func (a *App[C]) shutdown() error {
	a.Logger.Info("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := errors.Join(a.run(ctx, phaseStop), a.Components.StopAll(ctx))
	if err != nil {
		a.Logger.Error("shutdown finished with errors", logger.MergeWithError(nil, err))
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}
