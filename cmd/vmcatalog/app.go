package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/config"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/session"
	"github.com/jonwraymond/vmcatalog/store"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	observer observe.Observer
	logger   observe.Logger
	store    *store.Store
	coord    *session.Coordinator
	printer  *printer
	stderr   io.Writer
}

func newApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions, d *deps) (*app, error) {
	p, err := newPrinter(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, config.WithFile(opts.configFile))
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.ObserveConfig(version)
	obsCfg.ExportWriter = cmd.ErrOrStderr()
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	logger := obs.Logger()
	middleware, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	identity := d.identity
	if identity == nil {
		cachePath, err := config.TokenCachePath()
		if err != nil {
			return nil, err
		}
		identity, err = auth.NewMSALClient(auth.MSALConfig{
			ClientID:    cfg.ClientID,
			Authority:   cfg.SignInAuthority(),
			RedirectURI: cfg.RedirectURI,
			CacheFile:   cachePath,
		})
		if err != nil {
			return nil, err
		}
	}

	persister, err := store.NewFilePersister(opts.stateFile)
	if err != nil {
		return nil, err
	}
	st := store.New(store.WithPersister(persister), store.WithLogger(logger))
	saved, err := persister.Load()
	if err != nil {
		logger.Warn(ctx, "ignoring unreadable state file", observe.Field{Key: "error", Value: err})
	}
	if saved.SelectedLocation == "" {
		saved.SelectedLocation = cfg.DefaultLocation
	}
	st.Restore(saved)

	factory := &session.Factory{
		Identity:  identity,
		Authority: cfg.SignInAuthority(),
		Options:   cfg.ClientOptions(middleware),
		Logger:    logger,
	}

	return &app{
		cfg:      cfg,
		observer: obs,
		logger:   logger,
		store:    st,
		coord:    session.NewCoordinator(st, factory, session.WithLogger(logger), session.WithLoginHint(opts.account)),
		printer:  p,
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.observer.Shutdown(ctx); err != nil {
		fmt.Fprintf(a.stderr, "telemetry shutdown: %v\n", err)
	}
}

// resume restores the cached sign-in.
func (a *app) resume(ctx context.Context) error {
	return explain(a.coord.Resume(ctx))
}

// run builds the app, runs fn under the command timeout and shuts down.
func run(cmd *cobra.Command, opts *rootOptions, d *deps, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	ctx = observe.WithCorrelationID(ctx, uuid.NewString())

	a, err := newApp(ctx, cmd, opts, d)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

// signedIn runs fn after restoring the cached sign-in.
func signedIn(cmd *cobra.Command, opts *rootOptions, d *deps, fn func(ctx context.Context, a *app) error) error {
	return run(cmd, opts, d, func(ctx context.Context, a *app) error {
		if err := a.resume(ctx); err != nil {
			return err
		}
		return explain(fn(ctx, a))
	})
}
