package scenario

import "strings"

// Resolve validates the merged config for class and fills unset values from
// Defaults.
func (l *Loader) Resolve(class string) (Settings, error) {
	raw, err := l.LoadMerged(class)
	if err != nil {
		return Settings{}, err
	}
	return Normalize(raw)
}

// Normalize validates raw and turns it into Settings.
func Normalize(raw RawConfig) (Settings, error) {
	if err := ValidateRaw(raw); err != nil {
		return Settings{}, err
	}
	s := Defaults()
	s.Version = raw.Version
	if raw.StartingCash != nil {
		s.StartingCash = *raw.StartingCash
	}
	if raw.StartingDebt != nil {
		s.StartingDebt = *raw.StartingDebt
	}
	if raw.Stimulus != nil {
		s.Stimulus = *raw.Stimulus
	}
	if raw.WelcomeMessage != nil {
		s.WelcomeMessage = *raw.WelcomeMessage
	}
	if len(raw.EventPool) > 0 {
		s.EventPool = make([]string, len(raw.EventPool))
		for i, id := range raw.EventPool {
			s.EventPool[i] = strings.TrimSpace(id)
		}
	}
	if raw.JournalSize != nil {
		s.JournalSize = *raw.JournalSize
	}
	return s, nil
}
