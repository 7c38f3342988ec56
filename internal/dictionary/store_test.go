package dictionary

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dispatch"
)

func TestParseEntries(t *testing.T) {
	t.Run("label or name", func(t *testing.T) {
		entries, err := ParseEntries([]byte(`[
			{"id": 1, "code": "open", "label": "Open"},
			{"id": 2, "name": "Support"},
			{"id": 3, "label": "", "name": "Fallback"}
		]`))
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{ID: 1, Label: "Open", Code: "open"},
			{ID: 2, Label: "Support"},
			{ID: 3, Label: "Fallback"},
		}, entries)
	})

	t.Run("skips bad elements", func(t *testing.T) {
		entries, err := ParseEntries([]byte(`[
			"junk", 7, null,
			{"id": 0, "label": "Zero"},
			{"id": -4, "label": "Negative"},
			{"id": 5, "label": "   "},
			{"id": "6", "label": "String id"},
			{"label": "No id"},
			{"id": 9, "label": "Kept"}
		]`))
		require.NoError(t, err)
		assert.Equal(t, []Entry{{ID: 9, Label: "Kept"}}, entries)
	})

	t.Run("non-array is an invalid response", func(t *testing.T) {
		for _, body := range []string{`{"id":1}`, `nope`, ``} {
			_, err := ParseEntries([]byte(body))
			require.Error(t, err, body)
			assert.Equal(t, apierrors.InvalidResponseMessage, apierrors.Message(err))
		}
	})
}

func TestStoreMergeAndResolve(t *testing.T) {
	s := NewStore()
	s.Merge(Status, []Entry{{ID: 1, Label: "Open"}, {ID: 2, Label: "Closed"}})
	s.Merge(Status, []Entry{{ID: 2, Label: "Done"}, {ID: 3, Label: "Waiting"}})
	s.Merge(Status, []Entry{{ID: 0, Label: "ignored"}, {ID: 4}})

	assert.Equal(t, "Open", s.Resolve(Status, 1))
	assert.Equal(t, "Done", s.Resolve(Status, 2))
	assert.Equal(t, "Waiting", s.Resolve(Status, 3))
	assert.Equal(t, 3, s.Len(Status))

	assert.Equal(t, "1", s.Resolve(Priority, 1), "domains are independent")

	ids := []int{}
	for _, e := range s.Entries(Status) {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestResolveIsTotal(t *testing.T) {
	s := NewStore()
	s.Merge(Department, []Entry{{ID: 7, Label: "IT"}})

	for _, id := range []int{math.MinInt, -1, 0, 5, 7, math.MaxInt} {
		for _, domain := range append(Domains, Domain("unknown")) {
			got := s.Resolve(domain, id)
			if domain == Department && id == 7 {
				assert.Equal(t, "IT", got)
				continue
			}
			assert.Equal(t, strconv.Itoa(id), got)
		}
	}
}

type fakeSource struct {
	statuses, priorities, departments func() ([]byte, error)
}

func (f fakeSource) Statuses(context.Context) ([]byte, error)    { return f.statuses() }
func (f fakeSource) Priorities(context.Context) ([]byte, error)  { return f.priorities() }
func (f fakeSource) Departments(context.Context) ([]byte, error) { return f.departments() }

func body(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

func fail(err error) func() ([]byte, error) {
	return func() ([]byte, error) { return nil, err }
}

func TestFetchAll(t *testing.T) {
	testCases := []struct {
		name    string
		src     fakeSource
		failed  []Domain
		status5 string
	}{
		{
			name: "all succeed",
			src: fakeSource{
				statuses:    body(`[{"id":5,"label":"Resolved"}]`),
				priorities:  body(`[{"id":1,"label":"Low"}]`),
				departments: body(`[{"id":1,"name":"IT"}]`),
			},
			status5: "Resolved",
		},
		{
			name: "status fetch fails",
			src: fakeSource{
				statuses:    fail(errors.New("connection refused")),
				priorities:  body(`[{"id":1,"label":"Low"}]`),
				departments: body(`[{"id":1,"name":"IT"}]`),
			},
			failed:  []Domain{Status},
			status5: "5",
		},
		{
			name: "everything fails or is malformed",
			src: fakeSource{
				statuses:    body(`{"error":"nope"}`),
				priorities:  fail(errors.New("timeout")),
				departments: body(`garbage`),
			},
			failed:  []Domain{Status, Priority, Department},
			status5: "5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			loop := dispatch.NewLoop()
			store := NewStore()
			ready := 0
			countdown := dispatch.NewCountdown(len(Domains), func() { ready++ })
			var failed []Domain

			store.FetchAll(ctx, loop, tc.src, zerolog.Nop(), func(d Domain, err error) {
				if err != nil {
					failed = append(failed, d)
				}
				countdown.Done()
			})

			require.NoError(t, loop.RunUntilIdle(ctx))
			assert.Equal(t, 1, ready)
			assert.ElementsMatch(t, tc.failed, failed)
			assert.Equal(t, tc.status5, store.Resolve(Status, 5))
		})
	}
}
