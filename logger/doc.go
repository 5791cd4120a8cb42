// Package logger provides structured logging for flowkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Pipelines tag their loggers with the pipeline
// and stage names so that a failing item can be traced back to the stage
// that reported it.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("splitter")
//	log.Info("parent split", logger.Fields("children", 3))
package logger
