// Package dictionary maps the small integer ids used for ticket status,
// priority and department to their display labels.
package dictionary

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/wire"
)

// Domain names one lookup table.
type Domain string

const (
	Status     Domain = "status"
	Priority   Domain = "priority"
	Department Domain = "department"
)

// Domains lists every domain in fetch order.
var Domains = []Domain{Status, Priority, Department}

// Entry is one id and its label.
type Entry struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty"`
}

// ParseEntries reads a JSON array of {id, label|name} objects. Elements
// that are not objects, or have id <= 0 or an empty label, are skipped.
func ParseEntries(body []byte) ([]Entry, error) {
	objects, _, err := wire.DecodeArray(body)
	if err != nil {
		return nil, &apierrors.InvalidResponseError{Operation: "dictionary", Reason: err.Error()}
	}

	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		id := obj.Int("id", -1)
		label := obj.String("label")
		if label == "" {
			label = obj.String("name")
		}
		if id <= 0 || strings.TrimSpace(label) == "" {
			continue
		}
		entries = append(entries, Entry{ID: id, Label: label, Code: obj.String("code")})
	}
	return entries, nil
}

// Store holds the three lookup tables for one session. Entries are only
// ever added or replaced.
type Store struct {
	mu      sync.RWMutex
	domains map[Domain]map[int]Entry
}

func NewStore() *Store {
	return &Store{domains: make(map[Domain]map[int]Entry, len(Domains))}
}

// Merge adds entries to domain. For an id already present the new label
// wins.
func (s *Store) Merge(domain Domain, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.domains[domain]
	if !ok {
		table = make(map[int]Entry, len(entries))
		s.domains[domain] = table
	}
	for _, e := range entries {
		if e.ID <= 0 || e.Label == "" {
			continue
		}
		table[e.ID] = e
	}
}

// Resolve returns the label for id, or id itself in decimal when the
// domain has no such entry.
func (s *Store) Resolve(domain Domain, id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.domains[domain][id]; ok {
		return e.Label
	}
	return strconv.Itoa(id)
}

// Lookup returns the entry for id, if present.
func (s *Store) Lookup(domain Domain, id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.domains[domain][id]
	return e, ok
}

// Entries returns the domain's entries sorted by id.
func (s *Store) Entries(domain Domain) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.domains[domain]
	entries := make([]Entry, 0, len(table))
	for _, e := range table {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Len returns the number of entries in domain.
func (s *Store) Len(domain Domain) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.domains[domain])
}
