package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/aluconfig/internal/config"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestNew_RegistersEverything(t *testing.T) {
	s, cleanup, err := New(context.Background(), testConfig(t), logging.Discard(), observability.New())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, s)
	tools := s.ListTools()
	for _, name := range []string{"cfg_start_session", "cfg_select", "cfg_back", "cfg_restart", "cfg_status", "cfg_contact"} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 6)
}

func TestNew_BadCatalogPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	s, cleanup, err := New(context.Background(), cfg, logging.Discard(), nil)
	require.Error(t, err)
	assert.Nil(t, s)
	cleanup()
}

func TestNewEngine_CustomLinksAndCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: only
  slug: only.php
  image: only.webp
  category: janela
  opening_system: giro
  has_blind: nao
  blind_motorization: null
  fill_material: vidro
  leaf_count: 1
`), 0o644))

	cfg := testConfig(t)
	cfg.CatalogPath = path
	cfg.BaseURL = "https://example.com/p/"
	cfg.ImageBase = "https://cdn.example.com/"

	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	require.Equal(t, 1, eng.Catalog().Len())

	p, ok := eng.Catalog().Lookup("only")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/p/only.php", eng.Catalog().ProductURL(p))
	assert.Equal(t, "https://cdn.example.com/only.webp", eng.Catalog().ImageURL(p))
	assert.Equal(t, 6, eng.Schema().Len())
}

func TestOpen_MemoryNotifierReachesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := Open(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Notifier.(*session.Hub)
	require.True(t, ok)

	sess, err := b.Store.Create(ctx, "")
	require.NoError(t, err)
	ch, err := b.Notifier.Subscribe(ctx, sess.ID)
	require.NoError(t, err)

	_, err = b.Store.SetStatus(ctx, sess.ID, session.StatusClosed)
	require.NoError(t, err)
	snap := <-ch
	assert.Equal(t, session.StatusClosed, snap.Status)
}

func TestOpen_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifier.Backend = config.NotifierRedis
	cfg.Notifier.RedisAddr = "127.0.0.1:1"

	_, err := Open(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifier")
}

func TestBackend_CloseTwice(t *testing.T) {
	b, err := Open(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	b.Close()
	b.Close()
}
