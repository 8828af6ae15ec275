package reconcile

import (
	"regexp"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
)

const (
	minHalfDayDuration  = 3 * time.Hour
	minWholeDayDuration = 6 * time.Hour
)

type registryEntry struct {
	typ     timeoff.Type
	keyword string
	pattern *regexp.Regexp
}

// Registry classifies free text into configured absence types. It is built
// once per run and read-only afterwards.
type Registry struct {
	entries     []registryEntry
	byID        map[string]int
	blacklist   map[string]struct{}
	oooFallback string
}

// NewRegistry precompiles one word-boundary pattern per type. blacklist holds
// keywords whose types always go through approval. oooKeyword names the type
// used for out-of-office events whose title matches nothing.
func NewRegistry(types []timeoff.Type, blacklist []string, oooKeyword string) *Registry {
	r := &Registry{
		byID:        make(map[string]int, len(types)),
		blacklist:   make(map[string]struct{}, len(blacklist)),
		oooFallback: strings.ToLower(strings.TrimSpace(oooKeyword)),
	}
	for _, kw := range blacklist {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			r.blacklist[kw] = struct{}{}
		}
	}
	for _, t := range types {
		kw := t.Keyword()
		if kw == "" {
			continue
		}
		r.byID[t.ID] = len(r.entries)
		r.entries = append(r.entries, registryEntry{
			typ:     t,
			keyword: kw,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return r
}

// MatchByKeyword returns the type whose keyword appears in text. When several
// match, the one defined last wins.
func (r *Registry) MatchByKeyword(text string) (timeoff.Type, bool) {
	lower := strings.ToLower(text)
	var (
		found timeoff.Type
		ok    bool
	)
	for _, e := range r.entries {
		if e.pattern.MatchString(lower) {
			found, ok = e.typ, true
		}
	}
	return found, ok
}

func (r *Registry) ByID(id string) (timeoff.Type, bool) {
	i, ok := r.byID[id]
	if !ok {
		return timeoff.Type{}, false
	}
	return r.entries[i].typ, true
}

// OutOfOfficeType is the type assigned to native out-of-office events that
// do not name a type themselves.
func (r *Registry) OutOfOfficeType() (timeoff.Type, bool) {
	if r.oooFallback == "" {
		return timeoff.Type{}, false
	}
	for _, e := range r.entries {
		if e.keyword == r.oooFallback {
			return e.typ, true
		}
	}
	return timeoff.Type{}, false
}

func (r *Registry) IsApprovalSkippable(typeID string) bool {
	i, ok := r.byID[typeID]
	if !ok {
		return false
	}
	_, blocked := r.blacklist[r.entries[i].keyword]
	return !blocked
}

func (r *Registry) MinimumDuration(t timeoff.Type) time.Duration {
	if t.HalfDaysAllowed {
		return minHalfDayDuration
	}
	return minWholeDayDuration
}
