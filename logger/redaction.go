package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor scrubs provider credentials from log output.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor covering the credentials the service handles.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// OpenAI and Anthropic keys
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			// Groq
			regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
			// Google
			regexp.MustCompile(`AIza[0-9A-Za-z_-]{30,}`),
			// AWS access key IDs
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			// ATTOM apikey header or query value
			regexp.MustCompile(`(?i)apikey["\s:=]+[^\s",&]+`),
			regexp.MustCompile(`(?i)secret["\s:=]+[^\s"]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{w: w, r: r}
}

type redactingWriter struct {
	w io.Writer
	r *Redactor
}

// Write reports len(p) on success since the redacted payload length differs.
func (rw *redactingWriter) Write(p []byte) (int, error) {
	if _, err := rw.w.Write([]byte(rw.r.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
