// Package ledger provides structured, multi-sink logging for long-running
// processes. Messages are filtered by level, rendered by a pluggable
// Formatter and delivered to an ordered list of Sinks.
//
// Key features
//   - Key/value pairs at the call site, merged over a per-goroutine
//     ContextStore carried in context.Context (call-site pairs win)
//   - Scopes that remove the keys they added however the function exits
//   - AsyncSink: a bounded queue drained by one worker goroutine, with a
//     drop-oldest or drop-newest policy and a dropped counter
//   - RotatingFileSink: size-based rotation with numbered, optionally
//     gzip-compressed backups; ArchiveFileSink for age-based retention
//   - Per-category configurations through a Registry
//   - Configuration swaps that are atomic with respect to concurrent emits
//   - Sink failures reported on a rate-limited diagnostic channel with the
//     full error history, never returned to the emitting code
//
// Typical usage
//
//	logger := ledger.New()
//	defer logger.Close()
//
//	if err := logger.SetFileLogging("/var/log/station.log", 10<<20, 5); err != nil {
//		return err
//	}
//
//	ctx, scope := ledger.NewScope(ctx)
//	defer scope.Close()
//	scope.Add("request_id", rid)
//
//	logger.InfoContext(ctx, "processed", "items", n)
//	logger.ErrorWith().Ctx(ctx).Err(err).Msg("failed")
package ledger
