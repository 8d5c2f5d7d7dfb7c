package commands

import (
	"context"
	"database/sql"
	"fmt"
	"tmsassist/internal/batch"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/serviceutil"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/config"
	"tmsassist/internal/extract"
	"tmsassist/internal/lifecycle"
	"tmsassist/internal/llm"
	"tmsassist/internal/portal"
	"tmsassist/internal/service"
	"tmsassist/internal/store"
	"tmsassist/internal/ticket"
)

type app struct {
	config  config.Config
	clock   chrono.StandardImpl
	service service.Service
	db      *sql.DB
}

func (a app) Close() {
	a.db.Close()
}

func openApp(ctx context.Context) (app, error) {
	cfg, err := config.Load(*configPath, *dotenvPath)
	if err != nil {
		return app{}, err
	}
	tel := telemetry.SlogAPI{}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return app{}, fmt.Errorf("load timezone: %w", err)
	}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.Dsn)
	if err != nil {
		return app{}, err
	}
	err = store.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return app{}, err
	}

	factory, err := portal.NewFactory(portal.Options{
		BaseUrl:           cfg.Portal.BaseUrl,
		Timeout:           cfg.PortalTimeout(),
		RequestsPerSecond: cfg.Portal.RequestsPerSecond,
		CloudflareBypass:  cfg.Portal.CloudflareBypass,
	}, tel)
	if err != nil {
		db.Close()
		return app{}, err
	}

	asker, err := llm.New(llm.Options{
		Provider: cfg.Llm.Provider,
		Model:    cfg.Llm.Model,
		BaseUrl:  cfg.Llm.BaseUrl,
		ApiKey:   cfg.Llm.ApiKey,
	}, tel)
	if err != nil {
		db.Close()
		return app{}, err
	}
	var extractor extract.Extractor = extract.Structural{}
	if asker != nil {
		extractor = extract.NewChain(asker, []string{factory.Host()}, tel)
	}

	runner := batch.NewRunner(
		lifecycle.NewExecutor(factory, tel),
		clock,
		batch.Options{
			Interval:    cfg.BatchInterval(),
			MinInterval: cfg.BatchMinInterval(),
		},
		tel,
	)

	svc, err := service.New(
		factory,
		ticket.NewOrchestrator(factory, extractor, tel),
		runner,
		store.New(db, cfg.Database.Driver, tel),
		service.WithTelemetry(tel),
		service.WithClock(clock),
		service.WithProfile(cfg.Profile),
	)
	if err != nil {
		db.Close()
		return app{}, err
	}

	return app{
		config:  cfg,
		clock:   clock,
		service: svc,
		db:      db,
	}, nil
}

// mustOpenApp is openApp for command bodies.
func mustOpenApp(ctx context.Context) app {
	a, err := openApp(ctx)
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	return a
}
