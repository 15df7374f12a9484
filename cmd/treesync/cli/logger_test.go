// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_JSONWhenPiped(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelInfo)
	logger.Info("stream downloaded", "name", "bin/tool")

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buffer.String())
	}
	if record["msg"] != "stream downloaded" || record["name"] != "bin/tool" {
		t.Errorf("record = %v", record)
	}
}

func TestNewLogger_TextOnTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, slog.LevelInfo)
	logger.Info("tree created", "files", 3)

	if !strings.Contains(buffer.String(), "msg=\"tree created\"") {
		t.Errorf("text output = %q", buffer.String())
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, slog.LevelWarn)
	logger.Info("hidden")
	if buffer.Len() != 0 {
		t.Errorf("info record emitted at warn level: %q", buffer.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buffer.String(), "shown") {
		t.Errorf("warn record missing: %q", buffer.String())
	}
}
