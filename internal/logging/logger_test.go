package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{level: DebugLevel, want: []string{"d", "i", "w", "e"}},
		{level: InfoLevel, want: []string{"i", "w", "e"}},
		{level: WarnLevel, want: []string{"w", "e"}},
		{level: ErrorLevel, want: []string{"e"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			l := New(tt.level, &buf)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			var got []string
			for _, e := range decodeLines(t, &buf) {
				got = append(got, e["message"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(InfoLevel, &buf).WithField("service", "evolver")
	base.WithError(errors.New("boom")).Info("failed", map[string]interface{}{"generation": 3})
	base.Info("plain")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "evolver", entries[0]["service"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, float64(3), entries[0]["generation"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Contains(t, entries[0]["caller"], "logging/logger_test.go")

	_, hasErr := entries[1]["error"]
	assert.False(t, hasErr, "WithError must not leak into the parent")
	assert.Same(t, base, base.WithError(nil))
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithFormat(InfoLevel, TextFormat, &buf)
	l.WithFields(map[string]interface{}{"b": 2, "a": "x y"}).Warn("hello")

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, " WARN  hello ")
	assert.Contains(t, line, `a="x y" b=2`)
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("bye")
	assert.Equal(t, 1, code)
	assert.Equal(t, "FATAL", decodeLines(t, &buf)[0]["level"])
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l.Level())

	l, err = NewLogger(&Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l.Level())
	assert.Equal(t, TextFormat, l.format)

	_, err = NewLogger(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)

	assert.Equal(t, InfoLevel, parseLevel("nonsense"))
	assert.Equal(t, WarnLevel, parseLevel("warning"))
}

func TestConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := l.WithField("worker", i)
			for j := 0; j < 50; j++ {
				child.Info("tick")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 400)
}

func TestZapLoggerBridge(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).With(zap.String("component", "genetic"))

	zl.Debug("hidden")
	zl.Info("generation complete",
		zap.Int("generation", 4),
		zap.Float64("best_fitness", 1.5),
		zap.Float64("mean_fitness", math.Inf(1)),
		zap.Bool("converged", true),
		zap.Error(errors.New("boom")),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "generation complete", e["message"])
	assert.Equal(t, "genetic", e["component"])
	assert.Equal(t, float64(4), e["generation"])
	assert.Equal(t, 1.5, e["best_fitness"])
	assert.Equal(t, "+Inf", e["mean_fitness"])
	assert.Equal(t, true, e["converged"])
	assert.Equal(t, "boom", e["error"])
	assert.Contains(t, e["caller"], "logging/logger_test.go")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &CtxLogger{New(InfoLevel, &buf)}
	ctx := l.WithContext(context.Background())
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	handler := Middleware(New(InfoLevel, &buf), "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handling")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/v1/evolve", "/missing", "/healthz"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := decodeLines(t, &buf)
	// three "handling" lines and two completion lines
	require.Len(t, entries, 5)
	assert.Equal(t, "/api/v1/evolve", entries[0]["path"])
	assert.Equal(t, "Request completed", entries[1]["message"])
	assert.Equal(t, float64(200), entries[1]["status"])
	assert.Equal(t, "WARN", entries[3]["level"])
	assert.Equal(t, float64(404), entries[3]["status"])
	assert.Equal(t, "handling", entries[4]["message"])
}
