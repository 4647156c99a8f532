package transcribe

// Exports for testing.

// WithIDGenerator replaces job ID generation so log and hook assertions are stable.
var WithIDGenerator = withIDGenerator

// Outcome exports outcome for testing.
var Outcome = outcome
