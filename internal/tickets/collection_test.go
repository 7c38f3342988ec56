package tickets

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/dictionary"
)

func testStore() *dictionary.Store {
	s := dictionary.NewStore()
	s.Merge(dictionary.Status, []dictionary.Entry{{ID: 1, Label: "Open"}, {ID: 2, Label: "Closed"}})
	s.Merge(dictionary.Priority, []dictionary.Entry{{ID: 1, Label: "Low"}, {ID: 3, Label: "High"}})
	s.Merge(dictionary.Department, []dictionary.Entry{{ID: 4, Label: "IT"}})
	return s
}

const listBody = `[
	{"ticket_id":"t-1","title":"Printer jam","description":"3rd floor","status_id":1,"priority_id":3,
	 "department_id":4,"assignee_id":"u1","assignee_name":"alice","creator_id":"u2",
	 "created_at":"2024-03-01T10:15:30.123Z","updated_at":"2024-03-02T08:00:00Z"},
	"not an object",
	42,
	{"ticket_id":"t-2","title":"VPN down","status_id":5,"created_at":"yesterday"},
	null,
	{"ticket_id":"t-3","title":"New laptop","status_id":2,"priority_id":1,"department_id":4,
	 "created_at":"2024-02-10T09:00:00","updated_at":""}
]`

func TestCollectionLoadBody(t *testing.T) {
	c := NewCollection(testStore())
	skipped, err := c.LoadBody([]byte(listBody))
	require.NoError(t, err)

	assert.Equal(t, 3, skipped)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"t-1", "t-2", "t-3"}, []string{c.Get(0).ID, c.Get(1).ID, c.Get(2).ID})

	first := c.Get(0)
	assert.Equal(t, "Open", first.Status)
	assert.Equal(t, "High", first.Priority)
	assert.Equal(t, "IT", first.Department)
	assert.Equal(t, "alice", first.AssigneeName)
	assert.Equal(t, "2024-03-01T10:15:30.123Z", first.CreatedAtRaw)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123000000, time.UTC), first.CreatedAt)

	second := c.Get(1)
	assert.Equal(t, "5", second.Status, "unknown ids display as the number")
	assert.Equal(t, -1, second.PriorityID)
	assert.Equal(t, "-1", second.Priority)
	assert.True(t, second.CreatedAt.IsZero())
}

func TestLabelsResolvedAtLoad(t *testing.T) {
	store := testStore()
	c := NewCollection(store)
	_, err := c.LoadBody([]byte(`[{"ticket_id":"t-2","status_id":5}]`))
	require.NoError(t, err)
	assert.Equal(t, "5", c.Get(0).Status)

	store.Merge(dictionary.Status, []dictionary.Entry{{ID: 5, Label: "Pending"}})
	assert.Equal(t, "5", c.Get(0).Status, "loaded rows keep the label they were parsed with")

	_, err = c.LoadBody([]byte(`[{"ticket_id":"t-2","status_id":5}]`))
	require.NoError(t, err)
	assert.Equal(t, "Pending", c.Get(0).Status)
}

func TestCollectionKeepsOrderAndCount(t *testing.T) {
	testCases := []struct {
		name string
		body string
		ids  []string
	}{
		{"empty", `[]`, []string{}},
		{"only junk", `[1, "a", null, [], true]`, []string{}},
		{"interleaved", `[{"ticket_id":"a"}, 1, {"ticket_id":"b"}, [], {"ticket_id":"c"}]`, []string{"a", "b", "c"}},
		{"objects without ids still count", `[{}, {"title":"x"}]`, []string{"", ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCollection(nil)
			_, err := c.LoadBody([]byte(tc.body))
			require.NoError(t, err)

			ids := []string{}
			for _, ticket := range c.All() {
				ids = append(ids, ticket.ID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestCollectionRejectsNonArray(t *testing.T) {
	c := NewCollection(testStore())
	_, err := c.LoadBody([]byte(listBody))
	require.NoError(t, err)

	for _, body := range []string{`{"error":"x"}`, `oops`, `"string"`} {
		_, err := c.LoadBody([]byte(body))
		require.Error(t, err)
		assert.Equal(t, apierrors.InvalidResponseMessage, apierrors.Message(err))
		assert.Equal(t, 3, c.Len(), "prior contents untouched")
	}
}

func TestCollectionLoadReplaces(t *testing.T) {
	c := NewCollection(nil)
	_, err := c.LoadBody([]byte(`[{"ticket_id":"a"},{"ticket_id":"b"}]`))
	require.NoError(t, err)
	_, err = c.LoadBody([]byte(`[{"ticket_id":"c"}]`))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "c", c.Get(0).ID)
	assert.Equal(t, 0, c.Index("c"))
	assert.Equal(t, -1, c.Index("a"))
}

func TestCollectionGetOutOfBounds(t *testing.T) {
	c := NewCollection(nil)
	_, err := c.LoadBody([]byte(`[{"ticket_id":"a"}]`))
	require.NoError(t, err)

	for _, row := range []int{-1, 1, 100} {
		assert.True(t, c.Get(row).IsZero())
		assert.Equal(t, "", c.Cell(row, ColumnTitle))
	}
}

func TestCells(t *testing.T) {
	c := NewCollection(testStore())
	_, err := c.LoadBody([]byte(listBody))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"t-1", "Printer jam", "Open", "High", "IT", "alice", "03/01/2024", "03/02/2024",
	}, rowCells(c, 0))
	assert.Equal(t, "", c.Cell(1, ColumnCreatedAt), "invalid date renders empty")
	assert.Equal(t, "02/10/2024", c.Cell(2, ColumnCreatedAt))
	assert.Equal(t, "", c.Cell(2, ColumnUpdatedAt))
	assert.Equal(t, "", c.Cell(0, 99))

	cols := Columns()
	require.Len(t, cols, 8)
	assert.True(t, cols[ColumnID].Hidden)
	assert.True(t, cols[ColumnCreatedAt].Hidden)
	assert.False(t, cols[ColumnUpdatedAt].Hidden)
}

func rowCells(c *Collection, row int) []string {
	cells := make([]string, len(Columns()))
	for col := range cells {
		cells[col] = c.Cell(row, col)
	}
	return cells
}

func TestToJSON(t *testing.T) {
	c := NewCollection(testStore())
	_, err := c.LoadBody([]byte(listBody))
	require.NoError(t, err)

	loaded := c.Get(0)
	assert.Equal(t, map[string]any{
		"ticket_id":     "t-1",
		"title":         "Printer jam",
		"description":   "3rd floor",
		"status_id":     1,
		"priority_id":   3,
		"department_id": 4,
		"assignee_id":   "u1",
		"creator_id":    "u2",
	}, loaded.ToJSON())

	loaded.ID = ""
	body := loaded.ToJSON()
	assert.NotContains(t, body, "ticket_id")
	assert.Len(t, body, 7)
}

func TestBadge(t *testing.T) {
	testCases := []struct {
		label string
		kind  BadgeKind
		text  string
	}{
		{"Open", BadgeOpen, "Open"},
		{"OPENED", BadgeOpen, "Open"},
		{"opened", BadgeOpen, "Open"},
		{"closed", BadgeClosed, "Closed"},
		{" Closed ", BadgeClosed, "Closed"},
		{"In progress", BadgeOther, "In progress"},
		{"5", BadgeOther, "5"},
		{"", BadgeOther, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			kind, text := Badge(tc.label)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.text, text)
		})
	}
}

func TestExportXLSX(t *testing.T) {
	c := NewCollection(testStore())
	_, err := c.LoadBody([]byte(listBody))
	require.NoError(t, err)

	t.Run("visible columns", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ExportXLSX(c, &buf, false))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(ExportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Title", "Status", "Priority", "Department", "Assignee", "Updated At"}, rows[0])
		assert.Equal(t, []string{"Printer jam", "Open", "High", "IT", "alice", "03/02/2024"}, rows[1])
	})

	t.Run("all columns", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ExportXLSX(c, &buf, true))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(ExportSheet)
		require.NoError(t, err)
		assert.Equal(t, "ID", rows[0][0])
		assert.Equal(t, "t-1", rows[1][0])
		assert.Equal(t, "03/01/2024", rows[1][ColumnCreatedAt])
	})
}
