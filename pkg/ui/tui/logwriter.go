package tui

import (
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// LogWriter feeds zerolog JSON events into the log panel while the program
// runs. Once it has stopped, events go to fallback unchanged.
type LogWriter struct {
	reporter *Reporter
	fallback io.Writer
}

// LogWriter returns a writer for logger.JSONWriter that shows log events in
// the panel instead of on the terminal the program owns
func (r *Reporter) LogWriter(fallback io.Writer) *LogWriter {
	return &LogWriter{reporter: r, fallback: fallback}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	select {
	case <-w.reporter.done:
		return w.fallback.Write(p)
	default:
	}

	event := gjson.ParseBytes(p)
	msg := event.Get("message").String()
	if res := event.Get("resource"); res.Exists() {
		msg = res.String() + ": " + msg
	}
	if cause := event.Get("error"); cause.Exists() {
		msg += ": " + cause.String()
	}
	w.reporter.Log(strings.ToUpper(event.Get("level").String()), "%s", msg)
	return len(p), nil
}
