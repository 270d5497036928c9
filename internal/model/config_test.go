package model_test

import (
	"path/filepath"
	"testing"

	"github.com/hmalik/maildash/internal/model"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	if err != nil {
		t.Fatalf("loading missing config: %v", err)
	}

	if !cfg.Monitor.Enabled || cfg.Monitor.IntervalSec != 30 {
		t.Errorf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if cfg.Sync.BatchSize != 100 {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if cfg.DBPath == "" || cfg.AttachmentDir == "" {
		t.Errorf("expected default paths, got %+v", cfg)
	}
}

func TestConfigRoundTripClampsInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &model.AppConfig{
		DBPath:        "/tmp/maildash.db",
		AttachmentDir: "/tmp/attachments",
		Monitor:       model.MonitorConfig{Enabled: true, IntervalSec: 2},
		Sync:          model.SyncConfig{FetchLimit: 500, BatchSize: 50},
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	loaded, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if loaded.Monitor.IntervalSec != model.MinMonitorIntervalSec {
		t.Errorf("expected interval clamped to %d, got %d",
			model.MinMonitorIntervalSec, loaded.Monitor.IntervalSec)
	}
	if loaded.DBPath != cfg.DBPath || loaded.Sync.FetchLimit != 500 {
		t.Errorf("config did not round-trip: %+v", loaded)
	}
}
