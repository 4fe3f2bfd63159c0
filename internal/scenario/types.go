// Package scenario loads the tunable game settings for a classroom session.
package scenario

// RawConfig is a scenario file as written in YAML. Pointer fields tell
// "unset" apart from an explicit zero so class files can override defaults
// with 0.
type RawConfig struct {
	Version        string   `yaml:"version"`
	StartingCash   *int     `yaml:"starting_cash,omitempty"`
	StartingDebt   *int     `yaml:"starting_debt,omitempty"`
	Stimulus       *int     `yaml:"stimulus,omitempty"`
	WelcomeMessage *string  `yaml:"welcome_message,omitempty"`
	EventPool      []string `yaml:"event_pool,omitempty"`
	JournalSize    *int     `yaml:"journal_size,omitempty"`
	Notes          string   `yaml:"notes,omitempty"`
}

// Settings are the normalized values the round service runs with.
type Settings struct {
	StartingCash   int
	StartingDebt   int
	Stimulus       int
	WelcomeMessage string
	EventPool      []string
	JournalSize    int
	Version        string // effective scenario version, logged on reload
}
