package config

import "reflect"

// ConfigDiff describes what changed between two configs. Only fields that
// can be hot-reloaded are tracked individually; provider changes require a
// restart and are surfaced as a single flag.
type ConfigDiff struct {
	LogLevelChanged  bool
	NewLogLevel      LogLevel
	NarrationChanged bool
	StoryPackChanged bool

	// ProvidersChanged is true when any provider entry differs. Provider
	// clients are constructed at startup, so this requires a restart.
	ProvidersChanged bool
}

// Empty reports whether no tracked field changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.NarrationChanged && !d.StoryPackChanged && !d.ProvidersChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Narration != new.Narration {
		d.NarrationChanged = true
	}
	if old.Story.PackPath != new.Story.PackPath {
		d.StoryPackChanged = true
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.ProvidersChanged = true
	}

	return d
}
