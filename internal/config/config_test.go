package config

import (
	"testing"
	"time"
)

func validTestConfig() *Config {
	return &Config{
		RAG: RAGConfig{
			RoleWeight:    0.35,
			PageWeight:    0.35,
			RecencyWeight: 0.30,
			RoleFloor:     0.4,
			PageFloor:     0.5,
			RecencyFloor:  0.3,
		},
		Cache: CacheConfig{MaxEntries: 1000},
		Monitor: MonitorConfig{
			LatencyTarget:  2 * time.Second,
			LatencyCeiling: 10 * time.Second,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero cache capacity",
			mutate:  func(c *Config) { c.Cache.MaxEntries = 0 },
			wantErr: true,
		},
		{
			name:    "weights not summing to one",
			mutate:  func(c *Config) { c.RAG.RoleWeight = 0.5 },
			wantErr: true,
		},
		{
			name:    "zero role floor",
			mutate:  func(c *Config) { c.RAG.RoleFloor = 0 },
			wantErr: true,
		},
		{
			name:    "zero page floor",
			mutate:  func(c *Config) { c.RAG.PageFloor = 0 },
			wantErr: true,
		},
		{
			name:    "zero recency floor",
			mutate:  func(c *Config) { c.RAG.RecencyFloor = 0 },
			wantErr: true,
		},
		{
			name:    "floor above one",
			mutate:  func(c *Config) { c.RAG.PageFloor = 1.5 },
			wantErr: true,
		},
		{
			name:    "latency ceiling below target",
			mutate:  func(c *Config) { c.Monitor.LatencyCeiling = time.Second },
			wantErr: true,
		},
		{
			name:    "latency ceiling equal to target",
			mutate:  func(c *Config) { c.Monitor.LatencyCeiling = c.Monitor.LatencyTarget },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.RAG.TopK != 10 {
		t.Errorf("default top_k = %d, want 10", cfg.RAG.TopK)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("default cache ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Monitor.LatencyCeiling <= cfg.Monitor.LatencyTarget {
		t.Error("default latency ceiling must exceed the target")
	}
}
