// Package logger prefixes standard log lines with the OpenTelemetry trace and
// span of the request that produced them.
package logger

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/trace"
)

// Printf logs through the standard logger, adding trace_id and span_id when
// ctx carries a valid span.
func Printf(ctx context.Context, format string, args ...any) {
	log.Print(prefix(ctx) + fmt.Sprintf(format, args...))
}

// Fatalf is Printf followed by os.Exit(1).
func Fatalf(ctx context.Context, format string, args ...any) {
	log.Fatal(prefix(ctx) + fmt.Sprintf(format, args...))
}

func prefix(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("trace_id=%s span_id=%s ", sc.TraceID(), sc.SpanID())
}
