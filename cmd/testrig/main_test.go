package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)

	os.Setenv("TESTRIG_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails when the config does not
// validate.
func TestRun_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: ""

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)
	os.Setenv("TESTRIG_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty site.id")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)

	os.Unsetenv("TESTRIG_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("TESTRIG_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with a loopback
// connector and a proxy channel, shutting down on context timeout.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: test-rig

logging:
  level: info
  format: text
  output: stdout

influxdb:
  enabled: false

components:
  connectors:
    - name: "dut"
      type: "connectors/loopback:Loopback"

proxy:
  enabled: true
  connector: "dut"
  channels: ["aux1", "aux2"]
  queue_dir: "` + tmpDir + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)
	os.Setenv("TESTRIG_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v", err)
	}
}

// TestRun_UnknownProxyConnector verifies run fails when the proxy references
// a connector entry that is not configured.
func TestRun_UnknownProxyConnector(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: test-rig

components:
  connectors:
    - name: "dut"
      type: "connectors/loopback:Loopback"

proxy:
  enabled: true
  connector: "missing"
  channels: ["aux1"]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("TESTRIG_CONFIG")
	defer os.Setenv("TESTRIG_CONFIG", originalEnv)
	os.Setenv("TESTRIG_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when proxy references an unknown connector")
	}
}
