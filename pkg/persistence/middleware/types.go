// Package middleware wraps result sinks and failure logs to transform what they persist.
package middleware

import "github.com/aretw0/stagehand/pkg/ports"

// SinkMiddleware wraps a ResultSink to add behavior.
type SinkMiddleware func(ports.ResultSink) ports.ResultSink

// FailureMiddleware wraps a FailureLog to add behavior.
type FailureMiddleware func(ports.FailureLog) ports.FailureLog
