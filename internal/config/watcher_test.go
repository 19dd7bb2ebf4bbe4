package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	initialConfig := `
runtime:
  server:
    host: "0.0.0.0"
    port: 20880
    readTimeout: 30
    writeTimeout: 30
  registry:
    type: static
    static:
      services:
        - interface: com.example.DemoService
          instances:
            - ip: "127.0.0.1"
              port: 3000
  client:
    loadBalance: round_robin
`

	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatal(err)
	}

	configChanges := 0
	var lastConfig *Config

	watcherConfig := &WatcherConfig{
		DebounceDuration: 100 * time.Millisecond,
		OnChange: func(cfg *Config) error {
			configChanges++
			lastConfig = cfg
			return nil
		},
		OnError: func(err error) {
			t.Errorf("Watcher error: %v", err)
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	watcher, err := NewWatcher(configPath, watcherConfig, logger)
	if err != nil {
		t.Fatal(err)
	}
	watcher.Start()
	defer watcher.Stop()

	time.Sleep(200 * time.Millisecond)

	t.Run("FileModification", func(t *testing.T) {
		updatedConfig := `
runtime:
  server:
    host: "0.0.0.0"
    port: 20881
    readTimeout: 30
    writeTimeout: 30
  registry:
    type: static
    static:
      services:
        - interface: com.example.DemoService
          instances:
            - ip: "127.0.0.1"
              port: 3000
  client:
    loadBalance: round_robin
`

		if err := os.WriteFile(configPath, []byte(updatedConfig), 0644); err != nil {
			t.Fatal(err)
		}

		time.Sleep(300 * time.Millisecond)

		if configChanges != 1 {
			t.Errorf("Expected 1 config change, got %d", configChanges)
		}

		if lastConfig == nil || lastConfig.Runtime.Server.Port != 20881 {
			t.Error("Config not updated correctly")
		}
	})

	t.Run("Debouncing", func(t *testing.T) {
		configChanges = 0

		for i := 0; i < 3; i++ {
			cfg := `
runtime:
  server:
    host: "0.0.0.0"
    port: ` + strconv.Itoa(20882+i) + `
    readTimeout: 30
    writeTimeout: 30
  registry:
    type: static
    static:
      services: []
  client:
    loadBalance: round_robin
`
			if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
				t.Fatal(err)
			}
			time.Sleep(50 * time.Millisecond)
		}

		time.Sleep(300 * time.Millisecond)

		if configChanges != 1 {
			t.Errorf("Expected 1 config change after debouncing, got %d", configChanges)
		}
	})

	t.Run("FileRecreation", func(t *testing.T) {
		configChanges = 0

		if err := os.Remove(configPath); err != nil {
			t.Fatal(err)
		}

		time.Sleep(200 * time.Millisecond)

		if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
			t.Fatal(err)
		}

		time.Sleep(300 * time.Millisecond)

		if configChanges != 1 {
			t.Errorf("Expected 1 config change after recreation, got %d", configChanges)
		}
	})
}

func TestWatcherValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	invalidConfig := `
runtime:
  server:
    host: "0.0.0.0"
    port: -1
    readTimeout: 30
    writeTimeout: 30
  registry:
    type: static
    static:
      services: []
  client:
    loadBalance: round_robin
`

	if err := os.WriteFile(configPath, []byte(invalidConfig), 0644); err != nil {
		t.Fatal(err)
	}

	errorCount := 0
	watcherConfig := &WatcherConfig{
		OnChange: func(cfg *Config) error {
			t.Error("Should not call OnChange for invalid config")
			return nil
		},
		OnError: func(err error) {
			errorCount++
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	watcher, err := NewWatcher(configPath, watcherConfig, logger)
	if err != nil {
		t.Fatal(err)
	}
	watcher.Start()
	defer watcher.Stop()

	if err := os.WriteFile(configPath, []byte(invalidConfig+"# comment"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	if errorCount == 0 {
		t.Error("Expected validation error")
	}
}
