package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here

	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: true,
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "too-short"},
			wantErr: true,
		},
		{
			name:    "non-positive token ttl",
			env:     map[string]string{"JWT_SECRET": "0123456789abcdef0123456789abcdef", "JWT_TTL": "0s"},
			wantErr: true,
		},
		{
			name: "defaults",
			env:  map[string]string{"JWT_SECRET": "0123456789abcdef0123456789abcdef"},
			check: func(t *testing.T, c *Config) {
				if c.HTTPPort != "8080" || c.Env != "dev" || !c.MetricsEnabled || !c.RunSQLMigrations {
					t.Errorf("unexpected defaults: %+v", c)
				}
				if c.TokenTTL != 24*time.Hour {
					t.Errorf("unexpected token ttl %s", c.TokenTTL)
				}
				if c.DatabaseDSN != defaultDSN {
					t.Errorf("unexpected dsn %q", c.DatabaseDSN)
				}
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"JWT_SECRET":         "0123456789abcdef0123456789abcdef",
				"HTTP_PORT":          "9090",
				"APP_ENV":            "prod",
				"METRICS_ENABLED":    "false",
				"RUN_SQL_MIGRATIONS": "false",
				"DATABASE_DSN":       "host=db dbname=wh",
				"JWT_TTL":            "90m",
			},
			check: func(t *testing.T, c *Config) {
				if c.HTTPPort != "9090" || c.Env != "prod" || c.MetricsEnabled || c.RunSQLMigrations || c.DatabaseDSN != "host=db dbname=wh" || c.TokenTTL != 90*time.Minute {
					t.Errorf("overrides not applied: %+v", c)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}
