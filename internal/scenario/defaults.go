package scenario

import "github.com/xtding233/carbon-crafts/internal/market"

const (
	DefaultStartingCash   = 1500
	DefaultStartingDebt   = 0
	DefaultStimulus       = 500
	DefaultWelcomeMessage = "Welcome!"
	DefaultJournalSize    = 200
)

// Defaults are the settings used when no scenario file sets a value.
func Defaults() Settings {
	pool := make([]string, 0, len(market.Events()))
	for _, e := range market.Events() {
		pool = append(pool, e.String())
	}
	return Settings{
		StartingCash:   DefaultStartingCash,
		StartingDebt:   DefaultStartingDebt,
		Stimulus:       DefaultStimulus,
		WelcomeMessage: DefaultWelcomeMessage,
		EventPool:      pool,
		JournalSize:    DefaultJournalSize,
	}
}

// Events parses the event pool. Call after Validate; unknown ids are skipped.
func (s Settings) Events() []market.Event {
	out := make([]market.Event, 0, len(s.EventPool))
	for _, id := range s.EventPool {
		if e, ok := market.ParseEvent(id); ok && e != market.EventNone {
			out = append(out, e)
		}
	}
	return out
}
