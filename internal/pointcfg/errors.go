package pointcfg

import "fmt"

// ConfigFormatError marks a document that is in the wrong dialect or
// structurally invalid for the declared dialect. Surfaced to the caller
// verbatim, never retried.
type ConfigFormatError struct {
	Expected Dialect
	Detected Dialect // empty unless a foreign fingerprint was recognised
	Reason   string
}

func (e *ConfigFormatError) Error() string {
	if e.Detected != "" {
		return fmt.Sprintf("configuration appears to be in %s format, but %s format was expected: %s",
			e.Detected, e.Expected, e.Reason)
	}
	return fmt.Sprintf("invalid %s configuration: %s", e.Expected, e.Reason)
}

func newFormatError(expected Dialect, format string, args ...any) *ConfigFormatError {
	return &ConfigFormatError{Expected: expected, Reason: fmt.Sprintf(format, args...)}
}

// ConfigProcessingError marks a single point that could not be mapped,
// e.g. an unmapped function code. The reconciler downgrades it to a
// point-level error result instead of aborting the batch.
type ConfigProcessingError struct {
	Tag    string
	Reason string
}

func (e *ConfigProcessingError) Error() string {
	return fmt.Sprintf("point %q: %s", e.Tag, e.Reason)
}

// DuplicateError is a hard failure of the whole call, e.g. a gateway
// document carrying more than one slave block.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return e.Constraint
}

// ServerError wraps unclassified failures so the original message survives
// to the caller as a 500-class error. The engine never retries; retry, if
// any, is the caller's responsibility.
type ServerError struct {
	Op  string
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
