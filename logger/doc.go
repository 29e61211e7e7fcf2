// Package logger provides structured logging for transcriptcheck on top of
// zerolog.
//
// Loggers are component scoped and accept loose field maps so that the
// scoring, audit and indexing layers can attach window, video and verdict
// context without importing zerolog directly.
//
//	log := base.WithComponent("audit")
//	log.Info("clip validated", logger.Fields(logger.FieldVideoID, id, logger.FieldScore, 0.71))
package logger
