package market

import (
	"fmt"
	"strings"
)

// Event is a global market modifier active for one round.
type Event int

const (
	EventNone Event = iota
	EventCarbonTax
	EventViralExpose
	EventRecession
	EventTechBreakthrough
	EventGreenwashingCrackdown
)

// EventNoneID is the sentinel stored when no event is active.
const EventNoneID = "None"

var eventIDs = map[Event]string{
	EventCarbonTax:             "The Carbon Tax",
	EventViralExpose:           "The Viral Expose",
	EventRecession:             "The Economic Recession",
	EventTechBreakthrough:      "The Tech Breakthrough",
	EventGreenwashingCrackdown: "The Greenwashing Crackdown",
}

// Events lists every real event in the order admins see them.
func Events() []Event {
	return []Event{
		EventCarbonTax,
		EventViralExpose,
		EventRecession,
		EventTechBreakthrough,
		EventGreenwashingCrackdown,
	}
}

// ParseEvent maps an event id to its Event. Unknown ids yield EventNone with
// ok=false; callers that only settle may ignore ok since an unrecognized event
// settles like no event at all.
func ParseEvent(id string) (Event, bool) {
	id = strings.TrimSpace(id)
	if id == "" || id == EventNoneID {
		return EventNone, true
	}
	for e, name := range eventIDs {
		if name == id {
			return e, true
		}
	}
	return EventNone, false
}

func (e Event) String() string {
	if name, ok := eventIDs[e]; ok {
		return name
	}
	return EventNoneID
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(b []byte) error {
	parsed, ok := ParseEvent(string(b))
	if !ok {
		return fmt.Errorf("unknown market event %q", string(b))
	}
	*e = parsed
	return nil
}
