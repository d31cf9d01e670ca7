/*
Package log provides structured logging for Warden using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Usage

Initializing the logger:

	import "github.com/noona-project/warden/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("installation coordinator started")
	log.Debug("polling health endpoint")
	log.Warn("image pull retrying")
	log.Error("failed to connect to runtime")
	log.Fatal("cannot start without a catalog") // exits process

Context loggers:

	runtimeLog := log.WithComponent("runtime")
	runtimeLog.Info().Msg("resolved docker endpoint")

	svcLog := log.WithService("nats")
	svcLog.Info().Str("image", "nats:2.10").Msg("pulling image")

	stepLog := log.WithStep("portal")
	stepLog.Info().Str("status", "complete").Msg("wizard step advanced")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized once via log.Init
  - Accessible from all Warden packages without being passed around

Context Logger Pattern:
  - WithComponent/WithService/WithStep create child loggers with one
    extra field, to be used for the lifetime of the operation they
    describe rather than recreated per log line

# Security

Never log secrets or sensitive data. Vault tokens and wizard step
payloads that may carry credentials must be redacted before logging;
use typed fields (.Str, .Int) rather than string concatenation so user
input cannot forge extra JSON fields in the log stream.
*/
package log
