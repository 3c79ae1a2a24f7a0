// Package ingesterr defines the typed error taxonomy shared by the
// ingestion pipeline and query engine, and the policy each error implies
// at its call site (abort init, skip chunk, or hard fail).
package ingesterr

import "fmt"

// ConfigError reports a missing required option, an unreachable database,
// or a failed schema-bootstrap statement. Callers must treat it as fatal
// and abort initialization.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Option, e.Reason)
}

// NewConfigError builds a ConfigError.
func NewConfigError(option, reason string) *ConfigError {
	return &ConfigError{Option: option, Reason: reason}
}

// SqlExecError reports a single failed INSERT or SELECT. The data
// processor logs it, marks the owning transaction failed, and discards
// the chunk; the worker keeps running. On the read path it means the
// query returns an empty stream rather than propagating.
type SqlExecError struct {
	Op  string
	Err error
}

func (e *SqlExecError) Error() string {
	return fmt.Sprintf("sql exec failed: %s: %v", e.Op, e.Err)
}

func (e *SqlExecError) Unwrap() error { return e.Err }

// NewSqlExecError wraps err with the operation name that failed.
func NewSqlExecError(op string, err error) *SqlExecError {
	return &SqlExecError{Op: op, Err: err}
}

// ConsistencyError reports that an impacted account was missing from the
// cache, or that a stored function returned an unexpected column count.
// The on-disk data is no longer trustworthy; callers must hard-fail.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation: %s", e.Reason)
}

// NewConsistencyError builds a ConsistencyError.
func NewConsistencyError(reason string) *ConsistencyError {
	return &ConsistencyError{Reason: reason}
}

// SchemaMismatch reports a column-count surprise on a read path. Hard
// fail: the schema the caller expects is no longer the schema in place.
type SchemaMismatch struct {
	Func     string
	Expected int
	Got      int
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: %s: expected %d columns, got %d", e.Func, e.Expected, e.Got)
}

// NewSchemaMismatch builds a SchemaMismatch.
func NewSchemaMismatch(fn string, expected, got int) *SchemaMismatch {
	return &SchemaMismatch{Func: fn, Expected: expected, Got: got}
}
