// Package tableview implements the sort/filter/paginate projection shared by
// every list in the console. Rendering is pure: the same records and state
// always produce the same rows.
package tableview

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidView = errors.New("invalid view state")

// Table binds a set of columns and an optional search projection for one
// record type.
type Table[R any] struct {
	columns    []Column[R]
	byID       map[string]Column[R]
	searchText func(R) string
}

// Result is one rendered page plus the counts the console shows under the
// table ("showing N of M").
type Result[R any] struct {
	Rows          []R  `json:"items"`
	TotalFiltered int  `json:"total_filtered"`
	Total         int  `json:"total"`
	Page          Page `json:"page"`
	PageCount     int  `json:"page_count"`
}

// NewTable panics when two columns share an id.
func NewTable[R any](columns []Column[R], searchText func(R) string) *Table[R] {
	byID := make(map[string]Column[R], len(columns))
	for _, c := range columns {
		if _, dup := byID[c.ID()]; dup {
			panic(fmt.Sprintf("tableview: duplicate column id %q", c.ID()))
		}
		byID[c.ID()] = c
	}
	return &Table[R]{
		columns:    slices.Clone(columns),
		byID:       byID,
		searchText: searchText,
	}
}

func (t *Table[R]) Columns() []Column[R] {
	return slices.Clone(t.columns)
}

func (t *Table[R]) Column(id string) (Column[R], bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Validate rejects states that reference unknown columns, sort on a column
// that is not sortable, or carry an impossible page.
func (t *Table[R]) Validate(state ViewState) error {
	if state.Sort != nil {
		c, ok := t.byID[state.Sort.ColumnID]
		if !ok {
			return fmt.Errorf("%w: unknown sort column %q", ErrInvalidView, state.Sort.ColumnID)
		}
		if !c.Sortable() {
			return fmt.Errorf("%w: column %q is not sortable", ErrInvalidView, state.Sort.ColumnID)
		}
		if state.Sort.Direction != Ascending && state.Sort.Direction != Descending {
			return fmt.Errorf("%w: sort direction %q", ErrInvalidView, state.Sort.Direction)
		}
	}
	for id := range state.Filters {
		if _, ok := t.byID[id]; !ok {
			return fmt.Errorf("%w: unknown filter column %q", ErrInvalidView, id)
		}
	}
	if state.Page.Index < 0 {
		return fmt.Errorf("%w: negative page index", ErrInvalidView)
	}
	if state.Page.Size <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidView)
	}
	return nil
}

// ToggleSort applies a header click: none -> asc -> desc -> none on the same
// column, asc on a different one. Clicks on unknown or non-sortable columns
// leave the state unchanged.
func (t *Table[R]) ToggleSort(state ViewState, columnID string) ViewState {
	c, ok := t.byID[columnID]
	if !ok || !c.Sortable() {
		return state
	}
	switch {
	case state.Sort == nil || state.Sort.ColumnID != columnID:
		return state.WithSort(columnID, Ascending)
	case state.Sort.Direction == Ascending:
		return state.WithSort(columnID, Descending)
	default:
		return state.WithSort("", "")
	}
}

// Render runs search, column filters, sort and pagination in that order. The
// input slice is never reordered.
func (t *Table[R]) Render(records []R, state ViewState) Result[R] {
	rows := t.Filter(records, state)
	t.sort(rows, state.Sort)

	size := state.pageSize()
	page := Page{Index: state.Page.Index, Size: size}
	result := Result[R]{
		Rows:          []R{},
		TotalFiltered: len(rows),
		Total:         len(records),
		Page:          page,
		PageCount:     PageCount(len(rows), size),
	}
	if page.Index < 0 {
		return result
	}
	start := page.Index * size
	if start >= len(rows) {
		return result
	}
	end := min(start+size, len(rows))
	result.Rows = rows[start:end:end]
	return result
}

// RenderClamped is Render for callers that keep paging state across data
// changes: a page past the end is pulled back to the last page, so a filter or
// delete that shrinks the result never leaves the viewer on an empty page.
func (t *Table[R]) RenderClamped(records []R, state ViewState) Result[R] {
	result := t.Render(records, state)
	if len(result.Rows) == 0 && state.Page.Index > 0 {
		result = t.Render(records, state.Clamp(result.TotalFiltered))
	}
	return result
}

// Sorted returns every row that passes the filters, in display order, without
// paginating. Exports use it.
func (t *Table[R]) Sorted(records []R, state ViewState) []R {
	rows := t.Filter(records, state)
	t.sort(rows, state.Sort)
	return rows
}

// Filter applies the global search and the column filters. It always returns
// a fresh slice.
func (t *Table[R]) Filter(records []R, state ViewState) []R {
	needle := strings.ToLower(state.GlobalSearch)
	search := needle != "" && t.searchText != nil

	type activeFilter struct {
		col   Column[R]
		value string
	}
	var filters []activeFilter
	for id, value := range state.Filters {
		if value == "" {
			continue
		}
		if c, ok := t.byID[id]; ok {
			filters = append(filters, activeFilter{col: c, value: value})
		}
	}

	rows := make([]R, 0, len(records))
	for _, r := range records {
		if search && !strings.Contains(strings.ToLower(t.searchText(r)), needle) {
			continue
		}
		keep := true
		for _, f := range filters {
			if !f.col.Match(r, f.value) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return rows
}

func (t *Table[R]) sort(rows []R, key *SortKey) {
	if key == nil {
		return
	}
	c, ok := t.byID[key.ColumnID]
	if !ok || !c.Sortable() {
		return
	}
	if key.Direction == Descending {
		slices.SortStableFunc(rows, func(a, b R) int { return c.Compare(b, a) })
		return
	}
	slices.SortStableFunc(rows, c.Compare)
}
