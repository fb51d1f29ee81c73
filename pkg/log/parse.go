package log

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
)

const (
	logPrefix  = "Program log: "
	dataPrefix = "Program data: "
)

// Kind classifies a log line.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvoke
	KindConsumed
	KindSuccess
	KindFailed
	KindLog
	KindData
)

var kindNames = [...]string{"Unknown", "Invoke", "Consumed", "Success", "Failed", "Log", "Data"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Entry is one classified line.
type Entry struct {
	Kind    Kind
	Program string

	// Depth is the call depth of an invoke line, starting at 1.
	Depth int

	// Message is the text of a log line or the reason of a failed line.
	Message string

	// Code is set when a failed line carries a custom program error.
	Code *uint32

	// Data holds the decoded fields of a data line. Fields that are not
	// valid base64 are dropped.
	Data [][]byte

	Consumed uint64
	Limit    uint64

	Raw string
}

var (
	invokeLine   = regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]$`)
	consumedLine = regexp.MustCompile(`^Program (\S+) consumed (\d+) of (\d+) compute units$`)
	successLine  = regexp.MustCompile(`^Program (\S+) success$`)
	failedLine   = regexp.MustCompile(`^Program (\S+) failed: (.+)$`)
	customError  = regexp.MustCompile(`^custom program error: 0x([0-9a-fA-F]+)$`)
)

// status lines are tried in order once the log and data prefixes are ruled
// out, so a program message never reads as a status line.
var statusRules = []struct {
	kind Kind
	re   *regexp.Regexp
	fill func(e *Entry, m []string)
}{
	{KindInvoke, invokeLine, func(e *Entry, m []string) {
		e.Depth, _ = strconv.Atoi(m[2])
	}},
	{KindConsumed, consumedLine, func(e *Entry, m []string) {
		e.Consumed, _ = strconv.ParseUint(m[2], 10, 64)
		e.Limit, _ = strconv.ParseUint(m[3], 10, 64)
	}},
	{KindSuccess, successLine, func(*Entry, []string) {}},
	{KindFailed, failedLine, func(e *Entry, m []string) {
		e.Message = m[2]
		if c := customError.FindStringSubmatch(m[2]); c != nil {
			if v, err := strconv.ParseUint(c[1], 16, 32); err == nil {
				code := uint32(v)
				e.Code = &code
			}
		}
	}},
}

// Parse classifies a single line.
func Parse(line string) Entry {
	e := Entry{Raw: line}

	if msg, ok := strings.CutPrefix(line, logPrefix); ok {
		e.Kind, e.Message = KindLog, msg
		return e
	}
	if fields, ok := strings.CutPrefix(line, dataPrefix); ok {
		e.Kind = KindData
		for _, f := range strings.Fields(fields) {
			if b, err := base64.StdEncoding.DecodeString(f); err == nil {
				e.Data = append(e.Data, b)
			}
		}
		return e
	}

	for _, r := range statusRules {
		if m := r.re.FindStringSubmatch(line); m != nil {
			e.Kind, e.Program = r.kind, m[1]
			r.fill(&e, m)
			return e
		}
	}
	return e
}

// ParseAll classifies every line.
func ParseAll(lines []string) []Entry {
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries
}

// ProgramData returns the decoded fields of every data line, in order.
func ProgramData(lines []string) [][]byte {
	var out [][]byte
	for _, line := range lines {
		if e := Parse(line); e.Kind == KindData {
			out = append(out, e.Data...)
		}
	}
	return out
}

// Messages returns the text of every log line, in order.
func Messages(lines []string) []string {
	var out []string
	for _, line := range lines {
		if e := Parse(line); e.Kind == KindLog {
			out = append(out, e.Message)
		}
	}
	return out
}

// Summary condenses the logs of one top-level invocation.
type Summary struct {
	Program  string
	Success  bool
	Failure  string
	Code     *uint32
	Consumed uint64
	Limit    uint64
	Messages []string
	Events   [][]byte
}

// Summarize folds the lines of an invocation into a Summary. Lines written
// inside nested invocations add messages and events but do not decide the
// outcome.
func Summarize(lines []string) Summary {
	var s Summary
	depth := 0
	for _, e := range ParseAll(lines) {
		top := depth == 1
		switch e.Kind {
		case KindInvoke:
			depth = e.Depth
			if depth == 1 {
				s.Program = e.Program
			}
		case KindLog:
			s.Messages = append(s.Messages, e.Message)
		case KindData:
			s.Events = append(s.Events, e.Data...)
		case KindConsumed:
			if top {
				s.Consumed, s.Limit = e.Consumed, e.Limit
			}
		case KindSuccess:
			s.Success = s.Success || top
			depth--
		case KindFailed:
			if top {
				s.Failure, s.Code = e.Message, e.Code
			}
			depth--
		}
	}
	return s
}
