package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: "ledger", Output: &buf})

	logger.Info("saved", FieldBudgetID, "film")
	logger.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ledger", line[FieldComponent])
	assert.Equal(t, "film", line[FieldBudgetID])
	assert.Equal(t, "saved", line["msg"])
}

func TestWithComponent_TagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Level: slog.LevelInfo, Format: "json", Component: "server", Output: &buf})

	// GIVEN: a component logger derived from a logger with extra attributes
	logger := root.With(FieldBudgetID, "film").WithComponent("ledger").With(FieldActor, "alice")

	// WHEN: it logs
	logger.Info("x")

	// THEN: the line has a single component key, the derived one
	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"`+FieldComponent+`"`), line)
	assert.Equal(t, "ledger", logger.Component())

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "ledger", fields[FieldComponent])
	assert.Equal(t, "film", fields[FieldBudgetID])
	assert.Equal(t, "alice", fields[FieldActor])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent("http")

	got := FromContext(IntoContext(context.Background(), logger))
	assert.Equal(t, "http", got.Component())

	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: "http", Output: &buf})

	var seen *Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusConflict)
	})
	handler := middleware.RequestID(Middleware(logger)(next))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/budgets", nil))

	require.NotNil(t, seen)
	assert.Equal(t, "http", seen.Component())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request rejected", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.EqualValues(t, http.StatusConflict, line[FieldStatus])
	assert.NotEmpty(t, line[FieldRequestID])
}
