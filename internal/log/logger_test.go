package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	logger.WithComponent(ComponentWorker).InfoContext(context.Background(), "Totals refreshed", FieldPaid, 12)

	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "paid=12")
	assert.Equal(t, 1, strings.Count(out, "component="))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "component=app")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerWithKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentBudget, Output: &buf}).With("run", 1)

	logger.Error("failed")
	assert.Equal(t, ComponentBudget, logger.Component())
	assert.Contains(t, buf.String(), "run=1")
	assert.Contains(t, buf.String(), "component=budget")
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOperation(OpRefresh).
		WithError(errors.New("boom")).
		WithError(nil).
		WithPeriod("week", "2025-06-23", 90, 200, "0.45")

	assert.Equal(t, OpRefresh, fields[FieldOperation])
	assert.Equal(t, "boom", fields[FieldError])
	assert.Equal(t, int64(90), fields[FieldPaid])
	assert.Len(t, fields.ToSlice(), len(fields)*2)
}
