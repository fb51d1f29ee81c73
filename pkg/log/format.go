// Package log formats and parses the program log lines produced during an
// invocation.
//
// The simulated host writes lines in the runtime's format:
//
//	Program <id> invoke [1]
//	Program log: <message>
//	Program data: <base64> <base64> ...
//	Program <id> consumed <n> of <budget> compute units
//	Program <id> success
//	Program <id> failed: custom program error: 0x<code>
package log

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// FormatInvoke renders an invoke line.
func FormatInvoke(programID string, depth int) string {
	return fmt.Sprintf("Program %s invoke [%d]", programID, depth)
}

// FormatSuccess renders a success line.
func FormatSuccess(programID string) string {
	return fmt.Sprintf("Program %s success", programID)
}

// FormatFailed renders a failed line for a custom error code.
func FormatFailed(programID string, code uint64) string {
	return fmt.Sprintf("Program %s failed: custom program error: 0x%x", programID, code)
}

// FormatAbort renders a failed line for an aborted invocation.
func FormatAbort(programID, reason string) string {
	return fmt.Sprintf("Program %s failed: %s", programID, reason)
}

// FormatLog renders a program log line.
func FormatLog(message string) string {
	return logPrefix + message
}

// FormatData renders a program data line, one base64 field per entry.
func FormatData(fields ...[]byte) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = base64.StdEncoding.EncodeToString(f)
	}
	return dataPrefix + strings.Join(encoded, " ")
}

// FormatConsumed renders the compute usage line.
func FormatConsumed(programID string, consumed, limit uint64) string {
	return fmt.Sprintf("Program %s consumed %d of %d compute units", programID, consumed, limit)
}
