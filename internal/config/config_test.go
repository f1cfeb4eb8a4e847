package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.HTTP.Port != 5000 || cfg.HTTP.PortRetries != 3 {
		t.Errorf("http defaults = %+v", cfg.HTTP)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "*" {
		t.Errorf("allowed origins = %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Cache.DefaultTTL != 30*time.Second {
		t.Errorf("cache ttl = %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Archiver.SweepInterval != 24*time.Hour || cfg.Archiver.ArchiveAfter != 24*time.Hour {
		t.Errorf("archiver sweep defaults = %+v", cfg.Archiver)
	}
	if cfg.Archiver.PurgeInterval != time.Hour || cfg.Archiver.PurgeAfter != 7*24*time.Hour {
		t.Errorf("archiver purge defaults = %+v", cfg.Archiver)
	}
	if cfg.Database.ReaderDSN != cfg.Database.WriterDSN {
		t.Error("reader DSN must fall back to the writer DSN")
	}
	if cfg.Observability.ServiceName != "orderdesk" {
		t.Errorf("service name = %q", cfg.Observability.ServiceName)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("HTTP_PORT_RETRIES", "-2")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("ARCHIVE_AFTER", "48h")
	t.Setenv("OBS_PROMETHEUS_PATH", "stats")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.PortRetries != 0 {
		t.Errorf("negative retries must clamp to zero, got %d", cfg.HTTP.PortRetries)
	}
	if cfg.Cache.Driver != "noop" {
		t.Errorf("disabled cache driver = %q, want noop", cfg.Cache.Driver)
	}
	if cfg.Messaging.Driver != "noop" {
		t.Errorf("disabled messaging driver = %q, want noop", cfg.Messaging.Driver)
	}
	if cfg.Archiver.ArchiveAfter != 48*time.Hour {
		t.Errorf("archive after = %v", cfg.Archiver.ArchiveAfter)
	}
	if cfg.Observability.PrometheusPath != "/stats" {
		t.Errorf("prometheus path = %q, want a leading slash", cfg.Observability.PrometheusPath)
	}
}

func TestNewRejectsBadDrivers(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memcached")
	if _, err := New(); err == nil {
		t.Fatal("expected an error for an unsupported cache driver")
	}
}
