package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Formatter renders a log line from a pattern string using the directive
// set described in the external-interfaces configuration contract:
// %m message, %p level, %r millis since process start, %c logger name,
// %t goroutine id, %n newline, %d{layout} timestamp, %f source file base
// name, %l source line, %T goroutine id (alias of %t), %F full source
// file path, and %% for a literal percent sign.
type Formatter struct {
	tokens []token
}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenMessage
	tokenLevel
	tokenRelativeMillis
	tokenLoggerName
	tokenGoroutineID
	tokenNewline
	tokenTimestamp
	tokenFileBase
	tokenLine
	tokenFileFull
)

type token struct {
	kind    tokenKind
	literal string
	layout  string
}

var processStart = startTime()

func startTime() time.Time {
	// A package-level var initializer runs once at load; recorded here
	// under a named function so the intent ("process start" for %r) is
	// clear at the call site rather than a bare time.Now().
	return time.Now()
}

// ParsePattern compiles a formatter pattern once, ahead of the hot path.
func ParsePattern(pattern string) (*Formatter, error) {
	var tokens []token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' {
			lit.WriteRune(c)
			continue
		}
		if i+1 >= len(runes) {
			return nil, fmt.Errorf("log: dangling %% at end of pattern %q", pattern)
		}
		i++
		switch runes[i] {
		case '%':
			lit.WriteRune('%')
		case 'm':
			flush()
			tokens = append(tokens, token{kind: tokenMessage})
		case 'p':
			flush()
			tokens = append(tokens, token{kind: tokenLevel})
		case 'r':
			flush()
			tokens = append(tokens, token{kind: tokenRelativeMillis})
		case 'c':
			flush()
			tokens = append(tokens, token{kind: tokenLoggerName})
		case 't', 'T':
			flush()
			tokens = append(tokens, token{kind: tokenGoroutineID})
		case 'n':
			flush()
			tokens = append(tokens, token{kind: tokenNewline})
		case 'f':
			flush()
			tokens = append(tokens, token{kind: tokenFileBase})
		case 'l':
			flush()
			tokens = append(tokens, token{kind: tokenLine})
		case 'F':
			flush()
			tokens = append(tokens, token{kind: tokenFileFull})
		case 'd':
			layout := time.RFC3339
			if i+1 < len(runes) && runes[i+1] == '{' {
				end := strings.IndexRune(string(runes[i+1:]), '}')
				if end < 0 {
					return nil, fmt.Errorf("log: unterminated %%d{...} in pattern %q", pattern)
				}
				layout = string(runes[i+2 : i+1+end])
				i += end + 1
			}
			flush()
			tokens = append(tokens, token{kind: tokenTimestamp, layout: layout})
		default:
			return nil, fmt.Errorf("log: unknown format directive %%%c in pattern %q", runes[i], pattern)
		}
	}
	flush()
	return &Formatter{tokens: tokens}, nil
}

// Line holds the fields a Formatter needs; Handler assembles this once per
// record and reuses it across every appender attached to a logger.
type Line struct {
	Message    string
	Level      string
	LoggerName string
	Time       time.Time
	File       string
	Line       int
}

// Format renders l according to the compiled pattern.
func (f *Formatter) Format(l Line) string {
	var b strings.Builder
	for _, tk := range f.tokens {
		switch tk.kind {
		case tokenLiteral:
			b.WriteString(tk.literal)
		case tokenMessage:
			b.WriteString(l.Message)
		case tokenLevel:
			b.WriteString(l.Level)
		case tokenRelativeMillis:
			b.WriteString(strconv.FormatInt(time.Since(processStart).Milliseconds(), 10))
		case tokenLoggerName:
			b.WriteString(l.LoggerName)
		case tokenGoroutineID:
			b.WriteString(goroutineID())
		case tokenNewline:
			b.WriteByte('\n')
		case tokenTimestamp:
			b.WriteString(l.Time.Format(tk.layout))
		case tokenFileBase:
			b.WriteString(filepath.Base(l.File))
		case tokenLine:
			b.WriteString(strconv.Itoa(l.Line))
		case tokenFileFull:
			b.WriteString(l.File)
		}
	}
	return b.String()
}

// goroutineID extracts the calling goroutine's id from its stack trace
// header, standing in for the original source's GetThreadId in a runtime
// with no native thread handles.
func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return "?"
	}
	return fields[1]
}
