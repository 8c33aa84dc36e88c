// Package audit writes accepted submissions to a size-capped, rotated log.
//
// Each line is
//
//	<RFC 3339 UTC timestamp>,<instance id>,<form id>,<deprecated id>
//
// Rotation is handled by lumberjack. A disabled recorder is a no-op, and
// write failures are logged through slog rather than returned, so auditing
// never affects the submission path.
package audit
