// Package logging provides structured logging built on log/slog.
//
// The Logger type embeds *slog.Logger and adds service defaults and
// level/format selection from configuration. Subsystems should accept
// their own narrow logging interface so they remain testable with a
// noop implementation.
package logging
