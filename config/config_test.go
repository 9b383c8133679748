package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tolelom/consensusclash/internal/testutil"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Owner = "alice"
	cfg.Backend = BackendSQLite
	cfg.RPC.Port = 9000
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CLASH_RPC_PORT", "9100")
	t.Setenv("CLASH_LOG_LEVEL", "debug")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Owner != "alice" || got.Backend != BackendSQLite {
		t.Errorf("file values lost: %+v", got)
	}
	if got.RPC.Port != 9100 || got.Log.Level != "debug" {
		t.Errorf("env overrides not applied: port=%d level=%s", got.RPC.Port, got.Log.Level)
	}
	if got.Oracle.Threshold != 0.85 || len(got.Oracle.Models) != 1 {
		t.Errorf("defaults lost: %+v", got.Oracle)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got.RPC.Port != DefaultConfig().RPC.Port {
		t.Errorf("port: %d", got.RPC.Port)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "postgres"
	cfg.Owner = ""
	cfg.Oracle.Provider = ProviderOpenRouter
	cfg.RPC.TLS.Cert = "cert.pem"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"backend", "owner", "api_key", "rpc.tls"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestLoadTLSConfigDisabled(t *testing.T) {
	tc, err := LoadTLSConfig(TLSConfig{})
	if tc != nil || err != nil {
		t.Errorf("got %v, %v", tc, err)
	}
	if _, err := LoadTLSConfig(TLSConfig{Cert: "nope.pem", Key: "nope.key"}); err == nil {
		t.Error("missing cert should fail")
	}
}

func TestInitState(t *testing.T) {
	state := testutil.NewStateDB()
	cfg := DefaultConfig()
	cfg.Owner = "alice"

	fresh, err := InitState(cfg, state)
	if err != nil || !fresh {
		t.Fatalf("first init: fresh=%v err=%v", fresh, err)
	}
	cfg.Owner = "mallory"
	fresh, err = InitState(cfg, state)
	if err != nil || fresh {
		t.Fatalf("second init: fresh=%v err=%v", fresh, err)
	}
	meta, _ := state.GetMeta()
	if meta.Owner != "alice" {
		t.Errorf("owner: %q", meta.Owner)
	}
}

func TestNewLogger(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	LogConfig{Level: "warn", Format: "json"}.NewLogger(f).Info("hidden")
	LogConfig{Level: "warn", Format: "json"}.NewLogger(f).Warn("shown")
	data, _ := os.ReadFile(f.Name())
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), `"msg":"shown"`) {
		t.Errorf("log output: %s", data)
	}
}
