package main

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncRecorder buffers log output and counts flushes.
type syncRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	synced int
}

func (s *syncRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncRecorder) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced++
	return nil
}

func TestFail_FlushesLogger(t *testing.T) {
	rec := &syncRecorder{}
	logger := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), rec, zap.DebugLevel))

	code := fail(logger, "gateway stopped", catalog.ErrSnapshotIO)

	assert.Equal(t, 1, code)
	assert.Equal(t, 1, rec.synced)
	assert.Contains(t, rec.buf.String(), "gateway stopped")
	assert.Contains(t, rec.buf.String(), `"level":"error"`)
}

func TestRun_MissingCatalogReturnsError(t *testing.T) {
	cfg := &config.Config{
		ServiceName:    "storebuddy-test",
		CatalogBackend: config.BackendFile,
		CatalogPath:    filepath.Join(t.TempDir(), "missing.json"),
	}

	err := run(cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrSnapshotIO)
}
