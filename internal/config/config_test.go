// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)

	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.False(t, cfg.ScanOnStart, "deleted dictionaries would be registered again on start")
	assert.Equal(t, filepath.Join(cfg.DataDir, "app.db"), cfg.AppDBPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "user.db"), cfg.UserDBPath())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `listen: ":9000"
data_dir: /var/lib/sdcatalog
user_db: /tmp/user.db
dictionary_dirs:
  - /dicts/one
  - /dicts/two
watch: true
scan_on_start: true
indexer:
  concurrency: 2
  build_timeout: 90s
cache:
  expiration: 0s
log:
  format: json
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, used, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, []string{"/dicts/one", "/dicts/two"}, cfg.DictionaryDirs)
	assert.True(t, cfg.Watch)
	assert.True(t, cfg.ScanOnStart)
	assert.Equal(t, 2, cfg.Indexer.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Indexer.BuildTimeout)
	assert.Equal(t, time.Duration(0), cfg.Cache.Expiration)
	assert.Equal(t, 30*time.Minute, cfg.Cache.CleanupInterval)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join("/var/lib/sdcatalog", "app.db"), cfg.AppDBPath())
	assert.Equal(t, "/tmp/user.db", cfg.UserDBPath())
}

func TestLoad_EnvAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600))

	t.Setenv("SDCATALOG_LISTEN", ":9100")
	t.Setenv("SDCATALOG_INDEXER_CONCURRENCY", "8")

	cfg, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, 8, cfg.Indexer.Concurrency)

	cfg, _, err = Load(path, map[string]any{"listen": ":9200", "data_dir": "/data"})
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Listen)
	assert.Equal(t, "/data", cfg.DataDir)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexer:\n  concurrency: 0\nlog:\n  format: xml\n"), 0o600))
	_, _, err = Load(path, nil)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "indexer.concurrency")
	assert.Contains(t, err.Error(), "log.format")
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build_timeout: 10m0s")
	assert.Contains(t, string(data), "format: text")

	cfg, used, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.False(t, cfg.ScanOnStart, "deleted dictionaries would be registered again on start")

	require.ErrorIs(t, WriteDefault(path), os.ErrExist)
}
