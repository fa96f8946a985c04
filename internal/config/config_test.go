package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("uniquery-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.RowLimit != 1000 {
		t.Fatalf("Database.RowLimit = %d", cfg.Database.RowLimit)
	}
	if cfg.Database.QueryTimeout != 10*time.Second {
		t.Fatalf("Database.QueryTimeout = %s", cfg.Database.QueryTimeout)
	}
	if cfg.Model.Provider != ModelProviderNone {
		t.Fatalf("Model.Provider = %q", cfg.Model.Provider)
	}
	if cfg.Model.RequestsPerMinute != 50 {
		t.Fatalf("Model.RequestsPerMinute = %d", cfg.Model.RequestsPerMinute)
	}
	if cfg.Model.MaxOutputTokens != 300 {
		t.Fatalf("Model.MaxOutputTokens = %d", cfg.Model.MaxOutputTokens)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("Cache.Backend = %q", cfg.Cache.Backend)
	}
	if !cfg.History.Enabled {
		t.Fatal("History.Enabled should default to true in dev")
	}
	if cfg.Schema.File != "" {
		t.Fatalf("Schema.File = %q", cfg.Schema.File)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("uniquery-api", mapLookup(map[string]string{"UNIQUERY_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	cfg, err := Load("uniquery-api", mapLookup(map[string]string{"UNIQUERY_PROFILE": "TEST"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.History.Enabled {
		t.Fatal("History.Enabled should default to false in test")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"UNIQUERY_PROFILE":                   "test",
		"UNIQUERY_SERVICE_NAME":              "uniquery-custom",
		"UNIQUERY_HTTP_ADDR":                 ":9999",
		"UNIQUERY_HTTP_READ_TIMEOUT":         "2s",
		"UNIQUERY_HTTP_WRITE_TIMEOUT":        "3s",
		"UNIQUERY_LOG_LEVEL":                 "error",
		"UNIQUERY_LOG_JSON":                  "false",
		"UNIQUERY_AUTH_REQUIRED":             "true",
		"UNIQUERY_AUTH_STATIC_KEYS":          "k1:alice:query_reader",
		"UNIQUERY_DB_DRIVER":                 "SQLite",
		"UNIQUERY_DB_DSN":                    "file:university.db",
		"UNIQUERY_DB_MAX_OPEN_CONNS":         "4",
		"UNIQUERY_DB_MAX_IDLE_CONNS":         "2",
		"UNIQUERY_DB_QUERY_TIMEOUT":          "3s",
		"UNIQUERY_DB_ROW_LIMIT":              "50",
		"UNIQUERY_SCHEMA_FILE":               "/etc/uniquery/schema.yaml",
		"UNIQUERY_SCHEMA_STRICT":             "true",
		"UNIQUERY_MODEL_PROVIDER":            "gemini",
		"UNIQUERY_MODEL_API_KEY":             "secret-key",
		"UNIQUERY_MODEL_NAME":                "gemini-2.0-flash",
		"UNIQUERY_MODEL_TEMPERATURE":         "0.3",
		"UNIQUERY_MODEL_MAX_OUTPUT_TOKENS":   "512",
		"UNIQUERY_MODEL_TIMEOUT":             "21s",
		"UNIQUERY_MODEL_REQUESTS_PER_MINUTE": "15",
		"UNIQUERY_MODEL_BURST":               "3",
		"UNIQUERY_CACHE_BACKEND":             "redis",
		"UNIQUERY_CACHE_REDIS_ADDR":          "redis:6379",
		"UNIQUERY_CACHE_REDIS_DB":            "2",
		"UNIQUERY_CACHE_TTL":                 "1h",
		"UNIQUERY_HISTORY_ENABLED":           "true",
	})
	cfg, err := Load("uniquery-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "uniquery-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" || cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Observability.LogLevel != slog.LevelError || cfg.Observability.LogJSON {
		t.Fatalf("Observability = %+v", cfg.Observability)
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:alice:query_reader" {
		t.Fatalf("Auth = %+v", cfg.Auth)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "file:university.db" || cfg.Database.MaxOpenConns != 4 || cfg.Database.MaxIdleConns != 2 {
		t.Fatalf("Database = %+v", cfg.Database)
	}
	if cfg.Database.QueryTimeout != 3*time.Second || cfg.Database.RowLimit != 50 {
		t.Fatalf("Database = %+v", cfg.Database)
	}
	if cfg.Schema.File != "/etc/uniquery/schema.yaml" || !cfg.Schema.Strict {
		t.Fatalf("Schema = %+v", cfg.Schema)
	}
	if cfg.Model.Provider != ModelProviderGemini || cfg.Model.Name != "gemini-2.0-flash" || cfg.Model.APIKey != "secret-key" {
		t.Fatalf("Model = %+v", cfg.Model)
	}
	if cfg.Model.Temperature != 0.3 || cfg.Model.MaxOutputTokens != 512 || cfg.Model.Timeout != 21*time.Second {
		t.Fatalf("Model = %+v", cfg.Model)
	}
	if cfg.Model.RequestsPerMinute != 15 || cfg.Model.Burst != 3 {
		t.Fatalf("Model = %+v", cfg.Model)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.RedisAddr != "redis:6379" || cfg.Cache.RedisDB != 2 || cfg.Cache.TTL != time.Hour {
		t.Fatalf("Cache = %+v", cfg.Cache)
	}
	if !cfg.History.Enabled {
		t.Fatal("History.Enabled = false, want true")
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want string
	}{
		{env: map[string]string{"UNIQUERY_PROFILE": "oops"}, want: "UNIQUERY_PROFILE"},
		{env: map[string]string{"UNIQUERY_HTTP_READ_TIMEOUT": "NaN"}, want: "UNIQUERY_HTTP_READ_TIMEOUT"},
		{env: map[string]string{"UNIQUERY_DB_MAX_OPEN_CONNS": "oops"}, want: "UNIQUERY_DB_MAX_OPEN_CONNS"},
		{env: map[string]string{"UNIQUERY_DB_DRIVER": "oracle"}, want: "UNIQUERY_DB_DRIVER"},
		{env: map[string]string{"UNIQUERY_DB_ROW_LIMIT": "-1"}, want: "UNIQUERY_DB_ROW_LIMIT"},
		{env: map[string]string{"UNIQUERY_MODEL_TEMPERATURE": "bad"}, want: "UNIQUERY_MODEL_TEMPERATURE"},
		{env: map[string]string{"UNIQUERY_MODEL_PROVIDER": "llama"}, want: "UNIQUERY_MODEL_PROVIDER"},
		{env: map[string]string{"UNIQUERY_MODEL_PROVIDER": "openai"}, want: "UNIQUERY_MODEL_API_KEY"},
		{env: map[string]string{"UNIQUERY_CACHE_BACKEND": "memcached"}, want: "UNIQUERY_CACHE_BACKEND"},
		{env: map[string]string{"UNIQUERY_CACHE_BACKEND": "redis", "UNIQUERY_CACHE_REDIS_ADDR": ""}, want: "UNIQUERY_CACHE_REDIS_ADDR"},
		{env: map[string]string{"UNIQUERY_AUTH_REQUIRED": "not-bool"}, want: "UNIQUERY_AUTH_REQUIRED"},
		{env: map[string]string{"UNIQUERY_LOG_LEVEL": "verbose"}, want: "UNIQUERY_LOG_LEVEL"},
		{env: map[string]string{"UNIQUERY_HTTP_ADDR": " "}, want: "http address"},
	}
	for _, tc := range tests {
		_, err := Load("uniquery-api", mapLookup(tc.env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", tc.env)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("Load() error = %v, want mention of %s", err, tc.want)
		}
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load("uniquery-api", nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
