package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmalik/maildash/internal/credential"
	"github.com/hmalik/maildash/internal/mailbox"
	"github.com/hmalik/maildash/internal/model"
	"github.com/hmalik/maildash/internal/monitor"
	"github.com/hmalik/maildash/internal/store"
	"github.com/hmalik/maildash/internal/syncer"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the configuration file")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("creating data directory")
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening store")
	}
	defer st.Close()

	engine := syncer.New(st, mailbox.NewIMAPConnector(), credential.KeyringResolver{}, logger)

	if !cfg.Monitor.Enabled {
		logger.Info().Msg("monitoring disabled in config")
		return
	}

	interval := time.Duration(cfg.Monitor.IntervalSec) * time.Second
	mon := monitor.New(engine, interval, cfg.Sync, logger)

	accounts, err := st.GetAccounts(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("loading accounts")
	}

	started := 0
	now := time.Now()
	for _, acct := range accounts {
		if !acct.Enabled {
			continue
		}
		if acct.SessionExpires != nil && acct.SessionExpires.Before(now) {
			logger.Warn().Str("account_id", acct.ID).Str("email", acct.Email).
				Msg("session expired, account not monitored")
			continue
		}
		mon.Start(acct.ID)
		started++
	}

	if started == 0 {
		logger.Warn().Msg("no accounts to monitor")
	} else {
		logger.Info().Int("accounts", started).Dur("interval", interval).Msg("monitoring active")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	logger.Info().Msg("shutting down")
	mon.StopAll()
}
