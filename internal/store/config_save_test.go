package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("TASKSYNC_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&Config{APIURL: "http://seed"}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 64
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.APIURL = fmt.Sprintf("http://host-%d", i)
			cfg.PollIntervalMS = i
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(cfgDir, "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var got Config
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("config is not valid json: %v\n%s", err, string(b))
	}
	if !strings.HasPrefix(got.APIURL, "http://host-") {
		t.Fatalf("unexpected api url %q", got.APIURL)
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestSaveConfig_KeepsBackup(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("TASKSYNC_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&Config{APIURL: "http://one"}); err != nil {
		t.Fatalf("save one: %v", err)
	}
	if err := SaveConfig(&Config{APIURL: "http://two"}); err != nil {
		t.Fatalf("save two: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(cfgDir, "config.json.bak"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(b), "http://one") {
		t.Fatalf("backup should hold the previous config; got %s", string(b))
	}
}

func TestLoadConfig_MissingFileIsDefault(t *testing.T) {
	t.Setenv("TASKSYNC_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Timeout() != DefaultTimeout || cfg.PollInterval() != DefaultPollInterval || cfg.Backend() != SessionBackendFile {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigSet(t *testing.T) {
	var cfg Config
	cases := []struct {
		key, value string
		wantErr    bool
	}{
		{"api_url", "https://api.example.com/", false},
		{"timeout_seconds", "10", false},
		{"timeout_seconds", "-1", true},
		{"strict_tokens", "true", false},
		{"strict_tokens", "maybe", true},
		{"session_backend", "REDIS", false},
		{"session_backend", "etcd", true},
		{"nope", "x", true},
	}
	for _, tc := range cases {
		err := cfg.Set(tc.key, tc.value)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Set(%q, %q): err=%v wantErr=%v", tc.key, tc.value, err, tc.wantErr)
		}
	}
	if cfg.APIURL != "https://api.example.com" || cfg.TimeoutSeconds != 10 || !cfg.StrictTokens || cfg.Backend() != SessionBackendRedis {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
