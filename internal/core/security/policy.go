package security

// SecurityPolicy defines the security configuration.
type SecurityPolicy struct {
	// CommandLevel determines when commands require confirmation.
	// "always" - every command requires confirmation
	// "dangerous" - only dangerous commands require confirmation
	// "never" - auto-approve; high-risk commands still require confirmation
	CommandLevel ConfirmLevel `mapstructure:"command_level"`

	// RestrictedPaths contains paths that are completely forbidden.
	RestrictedPaths []string `mapstructure:"restricted_paths"`

	// ReadOnlyPaths contains paths that cannot be written to.
	ReadOnlyPaths []string `mapstructure:"readonly_paths"`

	// AllowShell determines if shell operators (pipes, chains, redirects) are allowed.
	AllowShell bool `mapstructure:"allow_shell"`

	// AllowBackground determines if commands may be moved to background tasks.
	AllowBackground bool `mapstructure:"allow_background"`
}

// ConfirmLevel represents the command confirmation level.
type ConfirmLevel string

const (
	ConfirmAlways    ConfirmLevel = "always"
	ConfirmDangerous ConfirmLevel = "dangerous"
	ConfirmNever     ConfirmLevel = "never"
)

// DefaultPolicy returns the default security policy (balanced mode).
func DefaultPolicy() *SecurityPolicy {
	return &SecurityPolicy{
		CommandLevel:    ConfirmDangerous,
		RestrictedPaths: []string{},
		ReadOnlyPaths:   []string{},
		AllowShell:      true,
		AllowBackground: true,
	}
}

// Valid reports whether l is one of the known levels.
func (l ConfirmLevel) Valid() bool {
	switch l {
	case ConfirmAlways, ConfirmDangerous, ConfirmNever:
		return true
	}
	return false
}
