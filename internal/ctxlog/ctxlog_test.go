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

package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != slog.Default() {
		t.Errorf("FromContext(empty): got %v, want slog.Default()", got)
	}

	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Errorf("FromContext: got %v, want %v", got, logger)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		New("debug", "json", &buf).Debug("hello", "k", "v")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("json.Unmarshal(%q): %v", buf.String(), err)
		}
		if rec["msg"] != "hello" || rec["k"] != "v" {
			t.Errorf("unexpected record: %v", rec)
		}
	})

	t.Run("level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := New("warn", "text", &buf)
		logger.Info("dropped")
		logger.Warn("kept")
		if strings.Contains(buf.String(), "dropped") {
			t.Errorf("info record written at warn level: %q", buf.String())
		}
		if !strings.Contains(buf.String(), "kept") {
			t.Errorf("warn record missing: %q", buf.String())
		}
	})
}
