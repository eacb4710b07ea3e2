// Package logging provides a thin prefixed wrapper over the standard
// logger: plain log.Printf("catalogsync: ...") lines rather than a
// structured logging library.
package logging

import "log"

// Logger prefixes every line with "catalogsync: <component>: ".
type Logger struct {
	prefix string
}

// New creates a Logger for the named component (e.g. "orchestrator", "platform").
func New(component string) *Logger {
	return &Logger{prefix: "catalogsync: " + component + ": "}
}

func (l *Logger) Printf(format string, args ...interface{}) {
	log.Printf(l.prefix+format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	log.Println(append([]interface{}{l.prefix}, args...)...)
}
