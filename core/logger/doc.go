// Package logger provides structured logging attribute helpers built on
// Go's standard slog package.
//
// Request-scoped loggers are derived with slog.Logger.With, which performs
// an immutable structural merge of attributes: a child logger never mutates
// its parent, and attributes set at creation time are carried on every line.
//
//	log := slog.Default().With(
//		logger.CorrelationID(id),
//		logger.Method(r.Method),
//		logger.Path(r.URL.Path),
//	)
//	log.Info("request started")
package logger
