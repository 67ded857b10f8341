package bookserver

import (
	"fmt"
	"time"

	"github.com/bewley/remlab-cli/internal/domain"
)

type uniqueUserResponse struct {
	UserName string `json:"user_name"`
}

type loginResponse struct {
	Token string  `json:"token"`
	Exp   float64 `json:"exp"`
}

type groupResponse struct {
	Policies map[string]policySchema `json:"policies"`
}

type policySchema struct {
	Slots map[string]slotSchema `json:"slots"`
}

type slotSchema struct {
	Description descriptionSchema `json:"description"`
}

type descriptionSchema struct {
	Name string `json:"name"`
}

// experiments flattens the policy tree into slot-tagged experiments.
// Nothing in the wire format forbids two policies sharing an experiment
// name; the catalog layer resolves that with last-write-wins.
func (g groupResponse) experiments() []domain.Experiment {
	var out []domain.Experiment
	for _, policy := range g.Policies {
		for slotID, slot := range policy.Slots {
			out = append(out, domain.Experiment{
				Name: slot.Description.Name,
				Slot: slotID,
			})
		}
	}
	return out
}

type windowSchema struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w windowSchema) window() (domain.AvailabilityWindow, error) {
	start, err := time.Parse(time.RFC3339, w.Start)
	if err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("parse window start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, w.End)
	if err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("parse window end: %w", err)
	}
	return domain.AvailabilityWindow{Start: start, End: end}, nil
}

type bookingSchema struct {
	Name string       `json:"name"`
	Slot string       `json:"slot"`
	When windowSchema `json:"when"`
}

func (b bookingSchema) booking() (domain.Booking, error) {
	when, err := b.When.window()
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", b.Name, err)
	}
	return domain.Booking{Name: b.Name, Slot: b.Slot, When: when}, nil
}

type activitySchema struct {
	Description descriptionSchema `json:"description"`
	Streams     []streamSchema    `json:"streams"`
	Exp         float64           `json:"exp"`
}

type streamSchema struct {
	For   string `json:"for"`
	URL   string `json:"url"`
	Token string `json:"token"`
}

func (a activitySchema) activity() domain.Activity {
	streams := make([]domain.Stream, 0, len(a.Streams))
	for _, s := range a.Streams {
		streams = append(streams, domain.Stream{For: s.For, URL: s.URL, Token: s.Token})
	}
	return domain.Activity{
		Experiment: a.Description.Name,
		Streams:    streams,
		Expiry:     time.Unix(int64(a.Exp), 0),
	}
}

type streamAccessResponse struct {
	URI string `json:"uri"`
}
