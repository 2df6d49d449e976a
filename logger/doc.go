// Package logger provides structured logging for kindflow using zerolog.
//
// It supports console and JSON output, level configuration and
// component-scoped loggers. Streaming code tags its entries with the
// plugin, data kind and batch index so a single pipeline run can be
// followed across plugins.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("plugin").WithPlugin("peak_basics")
//	log.Debug("batch computed", logger.Fields(logger.FieldBatch, 3, logger.FieldRows, 120))
package logger
