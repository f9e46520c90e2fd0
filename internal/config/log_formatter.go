package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	red         = 31
	yellow      = 33
	blue        = 36
	gray        = 37
	green       = 32
	cyan        = 96
	lightYellow = 93
	lightGreen  = 92
)

// ClFormatter renders entries as key=value pairs, sorted by key, optionally
// coloured with ANSI escapes.
type ClFormatter struct {
	NoColors   bool
	WithSource bool
}

func (f *ClFormatter) paint(color int, s string) string {
	if f.NoColors {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}

func (f *ClFormatter) Format(entry *log.Entry) ([]byte, error) {
	levelColor := blue
	switch entry.Level {
	case log.DebugLevel, log.TraceLevel:
		levelColor = gray
	case log.WarnLevel:
		levelColor = yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = red
	}

	var b strings.Builder
	b.WriteString(f.paint(cyan, "level") + "=" + f.paint(levelColor, strings.ToUpper(entry.Level.String())[:4]))
	b.WriteString(" " + f.paint(cyan, "ts") + "=" + f.paint(lightYellow, entry.Time.Format("2006-01-02 15:04:05.000")))

	if f.WithSource {
		if _, file, line, ok := runtime.Caller(6); ok {
			b.WriteString(" " + f.paint(cyan, "source") + "=" + f.paint(lightYellow, fmt.Sprintf("%s:%d", file, line)))
		}
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := entry.Data[k]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		var s string
		if m, err := json.Marshal(val); err == nil {
			s = string(m)
		}
		if s == "" {
			continue
		}
		valueColor := cyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = green
		} else if strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
			valueColor = lightYellow
		}
		b.WriteString(" " + f.paint(cyan, k) + "=" + f.paint(valueColor, s))
	}
	b.WriteString(" " + f.paint(cyan, "msg") + "=" + f.paint(lightGreen, strconv.Quote(entry.Message)))

	output := strings.NewReplacer("\r", "\\r", "\n", "\\n").Replace(b.String()) + "\n"
	return []byte(output), nil
}
