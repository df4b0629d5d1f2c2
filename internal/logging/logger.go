package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/systmms/dscreds/pkg/credentials"
)

// Logger writes leveled, optionally coloured messages. It never prints
// credential values: wrap them in Secret or run them through RedactSet.
type Logger struct {
	debug   bool
	noColor bool

	mu  sync.Mutex
	out io.Writer
}

// New creates a logger writing to stderr.
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write("\033[36m[DEBUG]\033[0m", "[DEBUG]", format, args...)
}

// IsDebug reports whether debug output is enabled.
func (l *Logger) IsDebug() bool {
	return l.debug
}

func (l *Logger) write(colored, plain, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	prefix := colored
	if l.noColor {
		prefix = plain
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}

var sensitiveKeyParts = []string{"password", "secret", "token", "key", "credential"}

// IsSensitiveKey reports whether a credential property name should be masked
// when displayed. The reserved user key is never masked.
func IsSensitiveKey(key string) bool {
	if key == credentials.UserKey {
		return false
	}
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// RedactSet returns a copy of set with sensitive values replaced by [REDACTED].
func RedactSet(set credentials.CredentialSet) map[string]string {
	out := make(map[string]string, len(set))
	for k, v := range set {
		if IsSensitiveKey(k) && v != "" {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

// SetValues returns the sensitive values of set, for use with Redact.
func SetValues(set credentials.CredentialSet) []string {
	var values []string
	for k, v := range set {
		if IsSensitiveKey(k) {
			values = append(values, v)
		}
	}
	return values
}
