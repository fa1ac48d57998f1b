package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/netmonkey/pkg/monkey"
)

const baseFaults = `version: "1"
faults:
  - name: teapot
    type: code
    code: 418
`

func TestWatcher_ReloadIsAppendOnly(t *testing.T) {
	path := writeFile(t, "faults.yaml", baseFaults)

	f, err := LoadFile(path)
	require.NoError(t, err)
	engine := monkey.New()
	_, err = f.Apply(engine)
	require.NoError(t, err)

	w := NewWatcher(path, engine)
	w.MarkApplied(f)

	n, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Changing an applied fault and adding a new one only adds the new one.
	require.NoError(t, os.WriteFile(path, []byte(`version: "1"
faults:
  - name: teapot
    type: code
    code: 500
  - type: failure
`), 0o600))

	n, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rules := engine.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "teapot", rules[0].Description())
	assert.Equal(t, "Fail any request", rules[1].Description())

	// Removing faults never removes rules.
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nfaults: []\n"), 0o600))
	n, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, engine.Rules(), 2)
}

func TestWatcher_ReloadCountsDuplicateFaults(t *testing.T) {
	const twice = `version: "1"
faults:
  - type: failure
  - type: failure
`
	path := writeFile(t, "faults.yaml", "version: \"1\"\nfaults: []\n")
	engine := monkey.New()
	w := NewWatcher(path, engine)

	require.NoError(t, os.WriteFile(path, []byte(twice), 0o600))
	n, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Matches the initial load of the same file.
	f, err := ParseYAML([]byte(twice))
	require.NoError(t, err)
	applied, err := f.Apply(monkey.New())
	require.NoError(t, err)
	assert.Equal(t, applied, len(engine.Rules()))

	// A third copy adds exactly one more rule.
	require.NoError(t, os.WriteFile(path, []byte(twice+"  - type: failure\n"), 0o600))
	n, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, engine.Rules(), 3)

	n, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWatcher_MarkAppliedCountsDuplicateFaults(t *testing.T) {
	path := writeFile(t, "faults.yaml", `version: "1"
faults:
  - type: code
    code: 503
  - type: code
    code: 503
`)
	f, err := LoadFile(path)
	require.NoError(t, err)
	engine := monkey.New()
	_, err = f.Apply(engine)
	require.NoError(t, err)

	w := NewWatcher(path, engine)
	w.MarkApplied(f)

	n, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, engine.Rules(), 2)
}

func TestWatcher_ReloadKeepsRulesOnBadFile(t *testing.T) {
	path := writeFile(t, "faults.yaml", baseFaults)
	engine := monkey.New()
	w := NewWatcher(path, engine)

	require.NoError(t, os.WriteFile(path, []byte("version: [\n"), 0o600))
	_, err := w.Reload()
	assert.ErrorIs(t, err, ErrInvalidYAML)
	assert.Empty(t, engine.Rules())
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseFaults), 0o600))

	engine := monkey.New()
	reloaded := make(chan int, 8)
	w := NewWatcher(path, engine,
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(added int, err error) {
			if err == nil {
				reloaded <- added
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(baseFaults+"  - name: slow\n    type: latency\n    delay: 10ms\n"), 0o600))

	select {
	case added := <-reloaded:
		assert.Equal(t, 2, added)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	assert.Len(t, engine.Rules(), 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
