package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestFormatterPlainOutputIsSortedAndSingleLine(t *testing.T) {
	t.Parallel()

	entry := log.NewEntry(log.New()).WithFields(log.Fields{
		"target": int64(555),
		"error":  errors.New("boom"),
		"alias":  "streamer",
	})
	entry.Level = log.WarnLevel
	entry.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	entry.Message = "line one\nline two"

	out, err := (&ClFormatter{NoColors: true}).Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	got := string(out)
	want := `level=WARN ts=2024-01-02 03:04:05.000 alias="streamer" error="boom" target=555 msg="line one\nline two"` + "\n"
	if got != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", got, want)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected single line, got %q", got)
	}
}
