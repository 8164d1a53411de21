package logging

// Config defines the structure for logging configuration in config.toml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the AVIARY_LOG_LEVEL environment variable.
	Level string `toml:"level"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the AVIARY_LOG_CALLER=true environment variable.
	ReportCaller bool `toml:"report_caller"`

	// File configures logging to a file.
	File FileSinkConfig `toml:"file"`

	// Format configures the appearance of the log output.
	Format FormatConfig `toml:"format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `toml:"enabled"`
	// Path is the full path to the log file.
	Path string `toml:"path"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `toml:"preset"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `toml:"disable_timestamp"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `toml:"disable_component"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "auto" (default), "always", or "never".
	StructuredToStderr string `toml:"structured_to_stderr"`
}
