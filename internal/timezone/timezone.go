// Package timezone resolves the fixed list of user-selectable zones to
// wall-clock time. Unknown identifiers never fail: they resolve to the
// default zone.
package timezone

import (
	"strings"
	"sync"
	"time"

	// Zone data is embedded so the bot does not depend on the host's tzdata.
	_ "time/tzdata"
)

// DefaultID is assigned to new users and used for unknown identifiers.
const DefaultID = "Europe/Moscow"

// Zone is one entry of the selectable list.
type Zone struct {
	ID     string // IANA name
	Label  string // button text shown to the user
	Offset int    // hours east of UTC, used if tzdata lacks the name
}

var zones = []Zone{
	{ID: "Europe/Kaliningrad", Label: "Калининград (UTC+2)", Offset: 2},
	{ID: "Europe/Moscow", Label: "Москва (UTC+3)", Offset: 3},
	{ID: "Europe/Samara", Label: "Самара (UTC+4)", Offset: 4},
	{ID: "Asia/Yekaterinburg", Label: "Екатеринбург (UTC+5)", Offset: 5},
	{ID: "Asia/Omsk", Label: "Омск (UTC+6)", Offset: 6},
	{ID: "Asia/Krasnoyarsk", Label: "Красноярск (UTC+7)", Offset: 7},
	{ID: "Asia/Irkutsk", Label: "Иркутск (UTC+8)", Offset: 8},
	{ID: "Asia/Yakutsk", Label: "Якутск (UTC+9)", Offset: 9},
	{ID: "Asia/Vladivostok", Label: "Владивосток (UTC+10)", Offset: 10},
	{ID: "Asia/Magadan", Label: "Магадан (UTC+11)", Offset: 11},
	{ID: "Asia/Kamchatka", Label: "Камчатка (UTC+12)", Offset: 12},
}

// Zones returns the selectable zones ordered by offset.
func Zones() []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// Valid reports whether id is one of the selectable zones.
func Valid(id string) bool {
	_, ok := byID(id)
	return ok
}

// Lookup matches user text against zone labels, the city part of a label,
// or a zone id. Matching ignores case and surrounding spaces.
func Lookup(text string) (Zone, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Zone{}, false
	}
	for _, z := range zones {
		if t == strings.ToLower(z.Label) || t == strings.ToLower(z.ID) || t == strings.ToLower(city(z.Label)) {
			return z, true
		}
	}
	return Zone{}, false
}

// LabelFor returns the display label for id, or the default zone's label.
func LabelFor(id string) string {
	if z, ok := byID(id); ok {
		return z.Label
	}
	z, _ := byID(DefaultID)
	return z.Label
}

func byID(id string) (Zone, bool) {
	for _, z := range zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

func city(label string) string {
	if i := strings.Index(label, " ("); i > 0 {
		return label[:i]
	}
	return label
}

// Clock supplies the current instant. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Resolver maps zone ids to locations and local "now".
// It is safe for concurrent use.
type Resolver struct {
	clock     Clock
	defaultID string

	mu   sync.Mutex
	locs map[string]*time.Location
}

// NewResolver creates a Resolver. An invalid defaultID falls back to DefaultID.
func NewResolver(clock Clock, defaultID string) *Resolver {
	if clock == nil {
		clock = SystemClock{}
	}
	if !Valid(defaultID) {
		defaultID = DefaultID
	}
	return &Resolver{
		clock:     clock,
		defaultID: defaultID,
		locs:      make(map[string]*time.Location),
	}
}

// DefaultID returns the zone used for unknown identifiers.
func (r *Resolver) DefaultID() string { return r.defaultID }

// Normalize returns id if it is selectable and the default id otherwise.
func (r *Resolver) Normalize(id string) string {
	if Valid(id) {
		return id
	}
	return r.defaultID
}

// Location returns the location for id, or the default zone's location.
func (r *Resolver) Location(id string) *time.Location {
	id = r.Normalize(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if loc, ok := r.locs[id]; ok {
		return loc
	}
	z, _ := byID(id)
	loc, err := time.LoadLocation(z.ID)
	if err != nil {
		loc = time.FixedZone(z.ID, z.Offset*3600)
	}
	r.locs[id] = loc
	return loc
}

// Now returns the current instant in zone id.
func (r *Resolver) Now(id string) time.Time {
	return r.clock.Now().In(r.Location(id))
}
