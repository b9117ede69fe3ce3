// Package log builds the application's slog loggers and the failure log.
//
// NewLogger returns a text logger whose handler masks credentials before
// they reach the output: cookies, authorization headers and the password
// part of proxy URLs. Verbose mode lowers the level from Warn to Debug.
//
// FailureLog is the append-only plain-text file that records every item
// whose fetch or extraction failed, one timestamped line per item.
package log
