// Public domain.

package mdlog_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/soniakeys/mapds/internal/mdlog"
)

func TestHandler(t *testing.T) {
	var b bytes.Buffer
	l := mdlog.New(&b, slog.LevelInfo)
	l.Debug("hidden")
	if b.Len() != 0 {
		t.Fatal("debug logged at info level:", b.String())
	}
	l.With("dataset", "a").WithGroup("fit").Info("done", "nfev", 42)
	got := b.String()
	if !strings.HasSuffix(got, " [INFO] [dataset=a] [fit.nfev=42] done\n") {
		t.Fatalf("%q", got)
	}
	if !strings.HasPrefix(got, "[") || strings.Count(got, "\n") != 1 {
		t.Fatalf("%q", got)
	}
}

func TestLevelVar(t *testing.T) {
	var b bytes.Buffer
	var lv slog.LevelVar
	lv.Set(slog.LevelWarn)
	l := slog.New(mdlog.NewHandler(&b, &slog.HandlerOptions{Level: &lv}))
	l.Info("quiet")
	lv.Set(slog.LevelDebug)
	l.Debug("loud")
	if got := b.String(); strings.Contains(got, "quiet") || !strings.Contains(got, "[DEBUG]") {
		t.Fatalf("%q", got)
	}
}
