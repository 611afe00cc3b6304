package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

//go:embed agencies.json
var agenciesJSON []byte

// Category groups agencies by encounter type.
type Category string

const (
	CategoryAirport Category = "airport"
	CategoryTraffic Category = "traffic"
)

// Priority ranks how urgent a card is.
type Priority string

const (
	PriorityCritical  Priority = "critical"
	PriorityImportant Priority = "important"
	PriorityInfo      Priority = "info"
)

type Card struct {
	ID         string   `json:"id" validate:"required"`
	Title      string   `json:"title" validate:"required"`
	Summary    string   `json:"summary"`
	Detail     string   `json:"detail"`
	LegalBasis string   `json:"legalBasis"`
	SourceURL  string   `json:"sourceURL,omitempty" validate:"omitempty,url"`
	Priority   Priority `json:"priority" validate:"oneof=critical important info"`
}

type QuickPhrase struct {
	ID          string `json:"id" validate:"required"`
	Situation   string `json:"situation"`
	Phrase      string `json:"phrase" validate:"required"`
	Explanation string `json:"explanation"`
}

type Agency struct {
	ID           string        `json:"id" validate:"required"`
	Name         string        `json:"name" validate:"required"`
	ShortName    string        `json:"shortName"`
	Category     Category      `json:"category" validate:"oneof=airport traffic"`
	State        string        `json:"state,omitempty" validate:"required_if=Category traffic"`
	Description  string        `json:"description"`
	WebsiteURL   string        `json:"websiteURL" validate:"omitempty,url"`
	About        string        `json:"about"`
	CanDo        []Card        `json:"canDo" validate:"dive"`
	CannotDo     []Card        `json:"cannotDo" validate:"dive"`
	Rights       []Card        `json:"rights" validate:"dive"`
	QuickPhrases []QuickPhrase `json:"quickPhrases" validate:"dive"`
}

// Library is the read-only rights content bundled with the application.
type Library struct {
	agencies []Agency
	byID     map[string]int
}

// Load parses the bundled agency content.
func Load() (*Library, error) {
	return Parse(agenciesJSON)
}

// Parse builds a library from agency JSON.
func Parse(data []byte) (*Library, error) {
	var agencies []Agency
	if err := json.Unmarshal(data, &agencies); err != nil {
		return nil, fmt.Errorf("failed to decode agency content: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	lib := &Library{byID: make(map[string]int, len(agencies))}
	for i, agency := range agencies {
		if err := v.Struct(agency); err != nil {
			return nil, fmt.Errorf("invalid agency %q: %w", agency.ID, err)
		}
		if _, dup := lib.byID[agency.ID]; dup {
			return nil, fmt.Errorf("duplicate agency id %q", agency.ID)
		}
		lib.byID[agency.ID] = i
	}
	lib.agencies = agencies
	return lib, nil
}

// All returns every agency in bundle order.
func (l *Library) All() []Agency {
	out := make([]Agency, len(l.agencies))
	copy(out, l.agencies)
	return out
}

func (l *Library) ByID(id string) (Agency, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Agency{}, false
	}
	return l.agencies[i], true
}

func (l *Library) ByCategory(category Category) []Agency {
	var out []Agency
	for _, agency := range l.agencies {
		if agency.Category == category {
			out = append(out, agency)
		}
	}
	return out
}

// ByState returns the traffic agency for a two-letter state code.
func (l *Library) ByState(state string) (Agency, bool) {
	state = strings.ToUpper(strings.TrimSpace(state))
	for _, agency := range l.agencies {
		if agency.Category == CategoryTraffic && agency.State == state {
			return agency, true
		}
	}
	return Agency{}, false
}

// States lists the states with traffic content, sorted.
func (l *Library) States() []string {
	var states []string
	for _, agency := range l.agencies {
		if agency.Category == CategoryTraffic {
			states = append(states, agency.State)
		}
	}
	sort.Strings(states)
	return states
}
