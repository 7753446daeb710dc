package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs
// within a context. Fields flow through context enrichment, so business
// context (region, run_id, source_id, ...) appears on every log statement
// without threading it through every function signature.
type LogFields struct {
	Region    string  // Region slug
	RunID     *string // Scout run ID
	SourceID  *string // Source being scraped or scheduled
	SignalID  *string // Signal being extracted, scored, or corroborated
	Agent     *string // Synthesis agent name (response_mapper, tension_linker, ...)
	Component string  // Component name, e.g. "scout.pipeline.scrape"
}

// WithLogFields enriches context with structured log fields. Multiple
// calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context, or the zero value if none
// are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.Region != "" {
		result.Region = new.Region
	}
	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.SourceID != nil {
		result.SourceID = new.SourceID
	}
	if new.SignalID != nil {
		result.SignalID = new.SignalID
	}
	if new.Agent != nil {
		result.Agent = new.Agent
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr creates a pointer from a value, for inline LogFields construction:
// logger.WithLogFields(ctx, logger.LogFields{SourceID: logger.Ptr(id)}).
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging page content or long LLM outputs.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
