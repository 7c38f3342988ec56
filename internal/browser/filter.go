package browser

import (
	"net/url"
	"sort"
)

// Query keys understood by GET /tickets.
const (
	KeyAssignee   = "assignee_id"
	KeyDepartment = "department_id"
	KeySearch     = "q"
)

// Filter is the set of query pairs sent with every list reload. It does
// not know which keys exclude each other; the Browser's policies do.
type Filter struct {
	values map[string]string
}

func NewFilter() *Filter {
	return &Filter{values: map[string]string{}}
}

func (f *Filter) Set(key, value string) {
	f.values[key] = value
}

func (f *Filter) Remove(keys ...string) {
	for _, key := range keys {
		delete(f.values, key)
	}
}

func (f *Filter) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Filter) Len() int {
	return len(f.values)
}

// Keys returns the keys in sorted order.
func (f *Filter) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values renders the filter as query parameters.
func (f *Filter) Values() url.Values {
	q := make(url.Values, len(f.values))
	for k, v := range f.values {
		q.Set(k, v)
	}
	return q
}

func (f *Filter) Clone() *Filter {
	c := NewFilter()
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}
