// Package log provides the logging abstraction used across omnisustain.
//
// Kernel packages never import a concrete logging library. They accept a
// Logger and emit structured fields built with the helpers in this package
// (String, Stringer, Err, ...). A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//	s, err := sustainer.New(work.TypeJob, sustainer.WithLogger(logger))
//
// Child loggers carry fixed fields:
//
//	unitLog := log.With(logger, log.String("unit", "heartbeat"))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
