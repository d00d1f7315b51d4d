package cache

import (
	"regexp"
	"strings"
	"time"
)

// Slot names a cache slot.
type Slot string

// Known slots.
const (
	SlotUserProfile   Slot = "userProfile"
	SlotCoursesList   Slot = "coursesList"
	SlotCourseDetails Slot = "courseDetails"
	SlotEnrollments   Slot = "enrollments"
)

// Matcher reports whether an endpoint belongs to a route. For id-keyed
// routes it also returns the resource id; singleton routes return "".
type Matcher func(endpoint string) (id string, ok bool)

// Exact matches exactly one endpoint.
func Exact(path string) Matcher {
	return func(endpoint string) (string, bool) {
		return "", endpoint == path
	}
}

// Pattern matches endpoints against re; the first capture group is the id.
func Pattern(re *regexp.Regexp) Matcher {
	return func(endpoint string) (string, bool) {
		m := re.FindStringSubmatch(endpoint)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

// Route maps matching read endpoints to a slot and freshness window.
type Route struct {
	Slot  Slot
	TTL   time.Duration // 0 means until invalidated
	Match Matcher
}

// TTLs holds the freshness window of each known slot.
type TTLs struct {
	UserProfile   time.Duration
	CoursesList   time.Duration
	CourseDetails time.Duration
	Enrollments   time.Duration
}

// DefaultTTLs returns the stock freshness windows: the profile lives until
// invalidated, the course list for 2 minutes, course details and enrollments
// for 5 minutes.
func DefaultTTLs() TTLs {
	return TTLs{
		UserProfile:   0,
		CoursesList:   2 * time.Minute,
		CourseDetails: 5 * time.Minute,
		Enrollments:   5 * time.Minute,
	}
}

var (
	courseDetailsRe = regexp.MustCompile(`^/courses/(\d+)$`)
	courseIDRe      = regexp.MustCompile(`^/courses/(\d+)`)
)

// DefaultRoutes returns the routing table for the known resources.
// Routes are evaluated in order and the first match wins.
func DefaultRoutes(ttl TTLs) []Route {
	return []Route{
		{Slot: SlotUserProfile, TTL: ttl.UserProfile, Match: Exact("/users/me")},
		{Slot: SlotCoursesList, TTL: ttl.CoursesList, Match: Exact("/courses/")},
		{Slot: SlotCourseDetails, TTL: ttl.CourseDetails, Match: Pattern(courseDetailsRe)},
		{Slot: SlotEnrollments, TTL: ttl.Enrollments, Match: Exact("/enrollments/")},
	}
}

// Invalidation clears slots after a successful write to an endpoint that
// contains a substring.
type Invalidation struct {
	Contains string // Substring of the written endpoint that triggers the rule
	Slots    []Slot // Slots cleared entirely

	// Item, when set, extracts an id from the written endpoint; only that
	// id's entry in ItemSlot is cleared, other ids stay untouched.
	Item     Matcher
	ItemSlot Slot
}

// Applies reports whether the rule fires for a written endpoint.
func (r Invalidation) Applies(endpoint string) bool {
	return strings.Contains(endpoint, r.Contains)
}

// DefaultInvalidations returns the invalidation table for the known
// resources. Any write under /courses/ clears the course list, including
// nested resources such as /courses/{id}/modules.
func DefaultInvalidations() []Invalidation {
	return []Invalidation{
		{Contains: "/users/", Slots: []Slot{SlotUserProfile}},
		{
			Contains: "/courses/",
			Slots:    []Slot{SlotCoursesList},
			Item:     Pattern(courseIDRe),
			ItemSlot: SlotCourseDetails,
		},
		{Contains: "/enrollments/", Slots: []Slot{SlotEnrollments}},
	}
}
