package olympe

import (
	"github.com/sirupsen/logrus"
)

// Log is the engine's logger. Content-level failures (missing assets, bad
// prefab parameters) log at Warn and never abort the frame; structural
// failures log at Error and propagate. Replace or silence it before
// NewRuntime if the host application owns logging.
var Log = logrus.New()

func logFor(subsystem string) *logrus.Entry {
	return Log.WithField("subsystem", subsystem)
}

// warnOnce deduplicates per-key warnings so a missing texture referenced by
// 3000 tiles warns a single time. Single-threaded like the rest of the core.
type warnOnce struct {
	seen map[string]bool
}

func (w *warnOnce) warn(entry *logrus.Entry, key, format string, args ...any) {
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[key] {
		return
	}
	w.seen[key] = true
	entry.Warnf(format, args...)
}
