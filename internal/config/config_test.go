package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" {
		t.Errorf("Driver = %q", c.Storage.Driver)
	}
	if c.Auth.SessionTTL != "720h" || c.Auth.StateTTL != "10m" {
		t.Errorf("TTLs = %q / %q", c.Auth.SessionTTL, c.Auth.StateTTL)
	}
	if c.Licensing.MaxAPIKeys != 10 {
		t.Errorf("MaxAPIKeys = %d", c.Licensing.MaxAPIKeys)
	}
	if Duration(c.Auth.SessionTTL) != 720*time.Hour {
		t.Errorf("Duration(SessionTTL) = %v", Duration(c.Auth.SessionTTL))
	}
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9000"
  public_base_url: "https://auth.example.com"
storage:
  postgres:
    max_idle_conns: 3
auth:
  session_pepper: "from-yaml"
  state_ttl: "5m"
providers:
  google:
    client_id: "gid"
    client_secret: "gsec"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SESSION_PEPPER", "from-env")
	t.Setenv("SERVER_ADDR", ":9100")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	// env pisa yaml
	if c.Auth.SessionPepper != "from-env" {
		t.Errorf("SessionPepper = %q", c.Auth.SessionPepper)
	}
	if c.Server.Addr != ":9100" {
		t.Errorf("Addr = %q", c.Server.Addr)
	}
	// yaml pisa defaults
	if c.Server.PublicBaseURL != "https://auth.example.com" {
		t.Errorf("PublicBaseURL = %q", c.Server.PublicBaseURL)
	}
	if c.Auth.StateTTL != "5m" {
		t.Errorf("StateTTL = %q", c.Auth.StateTTL)
	}
	if c.Providers.Google.ClientID != "gid" {
		t.Errorf("Google.ClientID = %q", c.Providers.Google.ClientID)
	}
	if c.Storage.Postgres.MaxIdleConns != 3 {
		t.Errorf("MaxIdleConns = %d", c.Storage.Postgres.MaxIdleConns)
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("STATE_TTL", "diez-minutos")
	if _, err := Load(""); err == nil {
		t.Fatal("Load debería rechazar duraciones inválidas")
	}
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "-1h")
	if _, err := Load(""); err == nil {
		t.Fatal("Load debería rechazar TTLs no positivos")
	}
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatal("Load debería exigir DSN con driver postgres")
	}
}

func TestValidate_ProdNeedsPepper(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if _, err := Load(""); err == nil {
		t.Fatal("Load debería exigir session_pepper en prod")
	}
	t.Setenv("SESSION_PEPPER", "algo")
	if _, err := Load(""); err != nil {
		t.Fatalf("Load con pepper err: %v", err)
	}
}

func TestValidate_BcryptCostRange(t *testing.T) {
	t.Setenv("BCRYPT_COST", "99")
	if _, err := Load(""); err == nil {
		t.Fatal("Load debería rechazar bcrypt_cost fuera de rango")
	}
}
