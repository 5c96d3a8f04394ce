package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"forumdl/internal/catalog"
	"forumdl/internal/components/telemetry"
	"forumdl/internal/scrapers/ipboard"
	"forumdl/internal/scrapers/ipboard/markup"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
)

type environment struct {
	cfg       Config
	engine    *catalog.Engine
	tel       telemetry.API
	telemetry telemetry.Telemetry
	db        *sql.DB
}

type envCtxKeyType int

var envCtxKey envCtxKeyType

func withEnvironment(ctx context.Context, env *environment) context.Context {
	return context.WithValue(ctx, envCtxKey, env)
}

func getEnvironment(ctx context.Context) *environment {
	return ctx.Value(envCtxKey).(*environment)
}

func openStore(cfg CacheConfig, instance string) (catalog.Store, *sql.DB, error) {
	err := os.MkdirAll(cfg.Dir, 0755)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case CACHE_SQLITE:
		db, err := catalog.OpenSQLite(filepath.Join(cfg.Dir, "cache.db"))
		if err != nil {
			return nil, nil, err
		}
		store, err := catalog.NewSQLiteStore(db, instance)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	default:
		store, err := catalog.NewJSONStore(cfg.Dir, instance)
		return store, nil, err
	}
}

func newEnvironment(ctx context.Context, cfg Config, verbose bool) (*environment, error) {
	cfg = cfg.withDefaults()
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	t, err := telemetry.Setup(ctx, "forumdl", cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	tel, err := telemetry.NewOtelAPI(telemetry.SlogAPI{}, otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	adapter, err := markup.New(cfg.Version, cfg.BaseUrl)
	if err != nil {
		return nil, err
	}

	dumper, err := telemetry.NewFilesystemOutput(cfg.DumpDir)
	if err != nil {
		return nil, fmt.Errorf("dump dir: %w", err)
	}
	var output telemetry.HttpOutput
	if verbose {
		transcripts, err := telemetry.NewFilesystemOutput(filepath.Join(cfg.DumpDir, "http"))
		if err != nil {
			return nil, fmt.Errorf("transcript dir: %w", err)
		}
		output = transcripts
		slog.Debug("writing http transcripts", "dir", transcripts.Directory())
	}

	client, err := ipboard.NewClient(ipboard.Options{
		BaseUrl:           cfg.BaseUrl,
		Username:          cfg.Username,
		Password:          cfg.Password,
		Login:             adapter.LoginForm(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Output:            output,
	}, tel)
	if err != nil {
		return nil, err
	}

	store, db, err := openStore(cfg.Cache, client.Host())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	engine := catalog.NewEngine(catalog.EngineOptions{
		Session:       client,
		Adapter:       adapter,
		Store:         store,
		Dumper:        dumper,
		PageDelay:     cfg.PageDelay,
		DownloadDelay: cfg.DownloadDelay,
		Tel:           tel,
	})

	return &environment{
		cfg:       cfg,
		engine:    engine,
		tel:       tel,
		telemetry: t,
		db:        db,
	}, nil
}

func (e *environment) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	var errs []error
	errs = append(errs, e.telemetry.Shutdown(ctx))
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	return errors.Join(errs...)
}
