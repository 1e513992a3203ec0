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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/sdcatalog/internal/config"
	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/testutil"
)

type fixture struct {
	config  string
	dataDir string
	dicts   string
	ifo     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	f := &fixture{
		config:  filepath.Join(dir, "config.yaml"),
		dataDir: filepath.Join(dir, "data"),
		dicts:   filepath.Join(dir, "dicts"),
	}
	if err := os.MkdirAll(f.dicts, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	conf := "log:\n  level: error\ndictionary_dirs: []\n"
	if err := os.WriteFile(f.config, []byte(conf), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f.ifo = testutil.WriteDict(t, f.dicts, "metals", []testutil.Entry{
		{Word: "iron", Data: testutil.Text("a strong metal")},
		{Word: "lead", Data: testutil.Text("a heavy metal")},
	}, &testutil.DictOptions{BookName: "Metals"})
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newSdcatalogApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	base := []string{"sdcatalog", "--config", f.config, "--data-dir", f.dataDir}
	err := app.Run(append(base, args...))
	return stdout.String(), stderr.String(), err
}

func TestApp_AddListQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, _, err := f.run(t, "add", f.dicts)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := identity.Of(f.ifo)
	if !strings.Contains(out, "added") || !strings.Contains(out, id.String()) {
		t.Errorf("add output = %q, want added %s", out, id)
	}

	out, _, err = f.run(t, "add", f.ifo)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if !strings.Contains(out, "exists") {
		t.Errorf("add again output = %q, want exists", out)
	}

	out, _, err = f.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, id.String()) || !strings.Contains(out, "metals") {
		t.Errorf("list output = %q, want row for %s", out, id)
	}

	out, _, err = f.run(t, "query", "Lead")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, "Metals") || !strings.Contains(out, "a heavy metal") {
		t.Errorf("query output = %q", out)
	}

	out, _, err = f.run(t, "query", "--dict", id.String(), "--format", "html", "iron")
	if err != nil {
		t.Fatalf("query html: %v", err)
	}
	if !strings.Contains(out, "a strong metal") || !strings.Contains(out, "<html") {
		t.Errorf("query html output = %q", out)
	}

	if _, _, err := f.run(t, "query", "copper"); !errors.Is(err, ErrSdcatalog) {
		t.Errorf("query copper: got %v, want %v", err, ErrSdcatalog)
	}
}

func TestApp_AddFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	missing := filepath.Join(f.dicts, "missing.ifo")

	_, stderr, err := f.run(t, "add", f.ifo, missing)
	if !errors.Is(err, ErrPartial) {
		t.Fatalf("add: got %v, want %v", err, ErrPartial)
	}
	if !strings.Contains(stderr, "missing.ifo") {
		t.Errorf("stderr = %q, want failure for missing.ifo", stderr)
	}
}

func TestApp_FlagErrors(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"add without path":   {"add"},
		"delete without id":  {"delete"},
		"bad delete id":      {"delete", "nope"},
		"query without word": {"query"},
		"bad format":         {"query", "--format", "pdf", "iron"},
		"bad id":             {"query", "--dict", "nope", "iron"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if _, _, err := f.run(t, args...); !errors.Is(err, ErrFlagParse) {
				t.Errorf("got %v, want %v", err, ErrFlagParse)
			}
		})
	}
}

func TestApp_Version(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out, _, err := f.run(t, "--version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "Apache License") {
		t.Errorf("version output = %q", out)
	}
}

func TestApp_DeleteSurvivesRestart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	other := testutil.WriteDict(t, f.dicts, "alloys", []testutil.Entry{
		{Word: "brass", Data: testutil.Text("copper and zinc")},
	}, nil)

	// Dictionary directories are configured so a startup scan would find
	// both dictionaries again.
	conf := fmt.Sprintf("log:\n  level: error\ndictionary_dirs:\n  - %q\n", f.dicts)
	if err := os.WriteFile(f.config, []byte(conf), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, _, err := f.run(t, "add", f.dicts); err != nil {
		t.Fatalf("add: %v", err)
	}
	deleted := identity.Of(f.ifo)
	out, _, err := f.run(t, "delete", deleted.String())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "deleted "+deleted.String()) {
		t.Errorf("delete output = %q", out)
	}

	cfg, _, err := config.Load(f.config, map[string]any{"data_dir": f.dataDir})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	logger := ctxlog.Discard()
	e := &env{
		cfg:    cfg,
		logger: logger,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
	}
	if err := e.open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer e.Close()

	start(e.ctx, e)

	var got []identity.ID
	for _, s := range e.ctrl.List() {
		got = append(got, s.ID)
	}
	want := []identity.ID{identity.Of(other)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("active dictionaries after restart (-want +got):\n%s", diff)
	}

	if _, _, err := f.run(t, "delete", deleted.String()); !errors.Is(err, ErrPartial) {
		t.Errorf("delete again: got %v, want %v", err, ErrPartial)
	}
}
