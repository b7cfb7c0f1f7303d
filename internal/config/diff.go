package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// BookingChanged is set when any booking rule (hours, default duration,
	// lookahead) differs. Booking rules apply from the next turn onward.
	BookingChanged bool
	NewBooking     BookingConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; provider,
// session store, and frontend changes require a restart and are ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Booking != new.Booking {
		d.BookingChanged = true
		d.NewBooking = new.Booking
	}

	return d
}
