package app

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/vk/tilegraph/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance over an in-memory filesystem
// holding files, keyed by path.
func SetupAppTest(t *testing.T, cfg *Config, files map[string]string, modules ...registry.Module) (*App, *SafeBuffer) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating directory of %s: %v", path, err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}

	out := &SafeBuffer{}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	testApp := NewApp(out, cfg, fs, modules...)

	t.Cleanup(func() {
		if os.Getenv("TILEGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
		}
	})

	return testApp, out
}
