package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresBackendURLAndKey(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without SUPABASE_URL and SUPABASE_ANON_KEY")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("BACKEND_DRIVER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendDriver != DriverSupabase {
		t.Fatalf("driver = %q", cfg.BackendDriver)
	}
	if cfg.PasswordMinLength != 8 {
		t.Fatalf("password min = %d", cfg.PasswordMinLength)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("timeout = %s", cfg.BackendTimeout)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr = %s", cfg.Addr())
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadCORSAllowedOrigins(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://clinic.example,https://admin.clinic.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://clinic.example", "https://admin.clinic.example"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("cors origins = %v", cfg.CORSAllowedOrigins)
		}
	}
}

func TestLoadSelfHostedNeedsDatabase(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("BACKEND_DRIVER", "selfhosted")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("BACKEND_DRIVER", "firebase")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestLoadTicketBucketNeedsCredentials(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("TICKET_BUCKET", "tickets")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	t.Setenv("S3_SECRET_ACCESS_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TICKET_BUCKET") {
		t.Fatalf("expected credentials error, got %v", err)
	}

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	if _, err := Load(); err != nil {
		t.Fatalf("load with credentials: %v", err)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("CLINIC_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Fatal("expected timezone error")
	}
}
