package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/auth"
	"blog/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "blog version "+Version)
}

func TestMigrateCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blog.db")
	t.Setenv("BLOG_DB_PATH", path)

	_, err := execute(t, "migrate", "--log-level", "error")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCategoryAdd(t *testing.T) {
	t.Setenv("BLOG_DB_PATH", filepath.Join(t.TempDir(), "blog.db"))

	out, err := execute(t, "category", "add", "tech", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "created category")
	assert.Contains(t, out, "tech")

	_, err = execute(t, "category", "add", "tech", "--log-level", "error")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "category", "add", "  ", "--log-level", "error")
	assert.Error(t, err)

	_, err = execute(t, "category", "add", "--log-level", "error")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "blog.yaml")
	dbPath := filepath.Join(dir, "from-file.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: "+dbPath+"\n"), 0o644))

	_, err := execute(t, "migrate", "--config", cfgPath, "--log-level", "error")
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)

	_, err = execute(t, "migrate", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	assert.NoError(t, err)
	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestSessionStoreBackends(t *testing.T) {
	t.Setenv("BLOG_DB_PATH", filepath.Join(t.TempDir(), "blog.db"))
	ctx := context.Background()

	a, err := newApp(globalFlags{logLevel: "error"})
	require.NoError(t, err)
	defer a.Close()

	s, err := a.sessionStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &auth.Manager{}, s)

	mr := miniredis.RunT(t)
	a.cfg.Session.Backend = config.BackendRedis
	a.cfg.Redis.Addr = mr.Addr()
	s, err = a.sessionStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &auth.RedisStore{}, s)

	mr.Close()
	a.cfg.Redis.Addr = "127.0.0.1:1"
	_, err = a.sessionStore(ctx)
	assert.Error(t, err)
}
