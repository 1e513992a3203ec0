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
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes the default configuration to path. Existing files are
// not overwritten.
func WriteDefault(path string) error {
	if Exists(path) {
		return fmt.Errorf("writing config: %q: %w", path, os.ErrExist)
	}

	d := Defaults()
	// Durations are written as strings so the file stays readable.
	doc := map[string]any{
		"listen":          d.Listen,
		"data_dir":        d.DataDir,
		"dictionary_dirs": d.DictionaryDirs,
		"scan_on_start":   d.ScanOnStart,
		"watch":           d.Watch,
		"indexer": map[string]any{
			"concurrency":   d.Indexer.Concurrency,
			"build_timeout": d.Indexer.BuildTimeout.String(),
		},
		"cache": map[string]any{
			"expiration":       d.Cache.Expiration.String(),
			"cleanup_interval": d.Cache.CleanupInterval.String(),
		},
		"log": map[string]any{
			"level":  d.Log.Level,
			"format": d.Log.Format,
		},
		"tracing": map[string]any{
			"stdout": d.Tracing.Stdout,
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = enc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
