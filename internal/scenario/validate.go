package scenario

import (
	"fmt"
	"strings"

	"github.com/xtding233/carbon-crafts/internal/market"
)

// ValidateRaw checks semantic constraints of a RawConfig and reports every
// violation at once.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	if cfg.StartingCash != nil && *cfg.StartingCash < 0 {
		errs = append(errs, "starting_cash must be >= 0")
	}
	if cfg.Stimulus != nil && *cfg.Stimulus < 0 {
		errs = append(errs, "stimulus must be >= 0")
	}
	if cfg.JournalSize != nil && *cfg.JournalSize < 1 {
		errs = append(errs, "journal_size must be >= 1")
	}
	seen := map[string]bool{}
	for i, id := range cfg.EventPool {
		e, ok := market.ParseEvent(id)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("event_pool[%d] %q is not a known event", i, id))
		case e == market.EventNone:
			errs = append(errs, fmt.Sprintf("event_pool[%d] must name an event, not %q", i, id))
		case seen[e.String()]:
			errs = append(errs, fmt.Sprintf("event_pool[%d] %q is listed twice", i, id))
		}
		seen[e.String()] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("scenario validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
