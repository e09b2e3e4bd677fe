package models

import "fmt"

// ProviderError marks an upstream market-data failure (non-2xx response
// or malformed payload). Stages log it and skip the pair; it is never
// fatal to a stage.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider %s: %v", e.Op, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a ProviderError for operation op.
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Err: err}
}

// StoreError marks a series-store query/upsert/delete failure. When it
// occurs on a path required to advance a checkpoint, the checkpoint is
// intentionally left untouched so the same data is retried next run.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError for op on table.
func NewStoreError(op, table string, err error) *StoreError {
	return &StoreError{Op: op, Table: table, Err: err}
}

// ConfigError marks missing pipeline configuration (no active
// instruments, no EMA configs, ...). The stage fails with a descriptive
// message; the orchestrator records the step as failed and continues.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// NewConfigError creates a ConfigError.
func NewConfigError(format string, a ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, a...)}
}
