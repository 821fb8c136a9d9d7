package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/thebluefowl/parley/internal/chat"
	"github.com/thebluefowl/parley/internal/config"
	"github.com/thebluefowl/parley/internal/conversation"
	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/keystore"
	"github.com/thebluefowl/parley/internal/kv"
	"github.com/thebluefowl/parley/internal/logging"
	"github.com/thebluefowl/parley/internal/metrics"
	"github.com/thebluefowl/parley/internal/storage"
	"github.com/thebluefowl/parley/internal/storage/badgerstore"
	"github.com/thebluefowl/parley/internal/storage/s3compat"
)

// settingsPrefix namespaces encryption settings inside the profile store.
const settingsPrefix = "settings/"

// app is everything one command needs. The session key lives in it and dies with the process.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	objects  storage.Storage
	profile  storage.Storage
	closers  []io.Closer
	registry *prometheus.Registry

	keys *keystore.Store
	enc  *encryption.Context
	chat *chat.Service
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig falls back to defaults when no config file exists yet.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		def := config.Default()
		color.Yellow("ℹ No config at %s, using a local database. Run `parley init` to choose.", path)
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	profile, err := openProfile(cfg, log)
	if err != nil {
		return nil, err
	}

	objects, closer, err := openStorage(ctx, cfg, log)
	if err != nil {
		_ = profile.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		_ = profile.Close()
		_ = closer.Close()
		return nil, err
	}

	// settings hold the key hash, so they live in the local profile and never in objects
	keys := keystore.New(kv.NewObjects(profile, settingsPrefix), kv.NewMemorySession(), log.WithField("component", "keystore"))
	ec := encryption.New(keys, encryption.Options{
		Workers:  cfg.History.Workers,
		Observer: collector,
		Logger:   log,
	})

	a := &app{
		cfg:      cfg,
		log:      log,
		objects:  objects,
		profile:  profile,
		closers:  []io.Closer{closer, profile},
		registry: registry,
		keys:     keys,
		enc:      ec,
		chat:     chat.NewService(conversation.NewStore(objects), ec, log.WithField("component", "chat")),
	}

	if unlockFlag {
		if err := a.unlockInteractive(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// openProfile opens the local settings database under cfg.Profile.Path.
func openProfile(cfg *config.Config, log *logrus.Logger) (*badgerstore.Store, error) {
	if err := os.MkdirAll(cfg.Profile.Path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	db, err := badgerstore.Open(badgerstore.Opts{
		Path:   cfg.Profile.Path,
		Logger: log.WithField("component", "profile"),
	})
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	return db, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Storage, io.Closer, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		s := cfg.Storage.S3
		client, err := s3compat.New(ctx, s3compat.Opts{
			Bucket:      s.Bucket,
			Region:      s.Region,
			Endpoint:    s.Endpoint,
			AccessKey:   s.AccessKeyID,
			SecretKey:   s.SecretAccessKey,
			PathStyle:   s.PathStyle,
			Prefix:      s.Prefix,
			PartSizeMB:  s.PartSizeMB,
			Concurrency: s.Concurrency,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return client, nopCloser{}, nil
	default:
		db, err := badgerstore.Open(badgerstore.Opts{
			Path:   cfg.Storage.Badger.Path,
			Logger: log.WithField("component", "badger"),
		})
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}

// Close flushes metrics and releases the stores.
func (a *app) Close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			a.log.WithError(err).Warn("metrics not written")
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.WithError(err).Warn("closing store")
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
