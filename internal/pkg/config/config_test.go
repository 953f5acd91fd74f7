package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Port != "8080" || cfg.RecordStore != StoreMongo {
		t.Fatalf("unexpected defaults: port=%q store=%q", cfg.Port, cfg.RecordStore)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.Portal.LoginPath != "/login" || cfg.Portal.DefaultLanding != "/profile" || cfg.Portal.EmployeeLanding != "/employee" {
		t.Fatalf("unexpected portal paths: %+v", cfg.Portal)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
	}
}

func TestLoadFrom_RequiresSecret(t *testing.T) {
	if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(nil)); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadFrom_RecordStore(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"memory", map[string]string{"RECORD_STORE": "memory"}, false},
		{"postgres with dsn", map[string]string{"RECORD_STORE": "postgres", "POSTGRES_DSN": "postgres://localhost/portal"}, false},
		{"postgres without dsn", map[string]string{"RECORD_STORE": "postgres"}, true},
		{"unknown", map[string]string{"RECORD_STORE": "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.env["JWT_SECRET"] = "s"
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tt.env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
