package logging

import (
	"log/slog"
)

// Standard attribute keys.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldTitle     = "title"
	FieldSessionID = "session_id"
	// FieldEventType labels state transitions and other notable events.
	FieldEventType = "event_type"
)

type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

// JobID tags a record with the conversion job it concerns.
func JobID(id string) Attr { return slog.String(FieldJobID, id) }

// Title tags a record with the job title shown to the user.
func Title(title string) Attr { return slog.String(FieldTitle, title) }

// Event tags a record with a journal event name such as "completed".
func Event(name string) Attr { return slog.String(FieldEventType, name) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attributes into the variadic form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
