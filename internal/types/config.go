package types

type RunMode string

const (
	// ModeLocal is the mode for running jobs against a local database
	ModeLocal RunMode = "local"
	// ModeJob is the mode for running the scheduled renewal job
	ModeJob RunMode = "job"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
