package tableview

import "strings"

// DefaultPageSize mirrors the console's initial page size.
const DefaultPageSize = 10

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts "asc"/"desc" in any case.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Ascending:
		return Ascending, true
	case Descending:
		return Descending, true
	}
	return "", false
}

type SortKey struct {
	ColumnID  string    `json:"column"`
	Direction Direction `json:"direction"`
}

type Page struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// ViewState is the caller-owned sort/filter/page configuration. Methods never
// mutate the receiver; they return an updated copy.
type ViewState struct {
	Sort         *SortKey          `json:"sort,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	GlobalSearch string            `json:"search,omitempty"`
	Page         Page              `json:"page"`
}

// NewViewState returns the initial state: no sort, no filters, first page.
func NewViewState() ViewState {
	return ViewState{Page: Page{Size: DefaultPageSize}}
}

func (s ViewState) clone() ViewState {
	next := s
	if s.Sort != nil {
		key := *s.Sort
		next.Sort = &key
	}
	if s.Filters != nil {
		next.Filters = make(map[string]string, len(s.Filters))
		for k, v := range s.Filters {
			next.Filters[k] = v
		}
	}
	return next
}

// WithSort replaces the active sort. An empty column id clears it.
func (s ViewState) WithSort(columnID string, dir Direction) ViewState {
	next := s.clone()
	if columnID == "" {
		next.Sort = nil
		return next
	}
	if dir != Descending {
		dir = Ascending
	}
	next.Sort = &SortKey{ColumnID: columnID, Direction: dir}
	return next
}

// WithFilter sets a column filter; an empty value removes it. The page index
// goes back to 0.
func (s ViewState) WithFilter(columnID, value string) ViewState {
	next := s.clone()
	if value == "" {
		delete(next.Filters, columnID)
	} else {
		if next.Filters == nil {
			next.Filters = make(map[string]string)
		}
		next.Filters[columnID] = value
	}
	next.Page.Index = 0
	return next
}

func (s ViewState) WithGlobalSearch(search string) ViewState {
	next := s.clone()
	next.GlobalSearch = search
	next.Page.Index = 0
	return next
}

// WithPageSize changes the page size and returns to the first page.
func (s ViewState) WithPageSize(size int) ViewState {
	next := s.clone()
	if size <= 0 {
		size = DefaultPageSize
	}
	next.Page = Page{Index: 0, Size: size}
	return next
}

func (s ViewState) WithPage(index int) ViewState {
	next := s.clone()
	if index < 0 {
		index = 0
	}
	next.Page.Index = index
	return next
}

// ClearFilters drops the global search and every column filter.
func (s ViewState) ClearFilters() ViewState {
	next := s.clone()
	next.GlobalSearch = ""
	next.Filters = nil
	next.Page.Index = 0
	return next
}

func (s ViewState) IsFiltered() bool {
	if s.GlobalSearch != "" {
		return true
	}
	for _, v := range s.Filters {
		if v != "" {
			return true
		}
	}
	return false
}

func (s ViewState) pageSize() int {
	if s.Page.Size <= 0 {
		return DefaultPageSize
	}
	return s.Page.Size
}

// PageCount is the number of pages needed for total rows; at least 1.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Clamp moves the page index back onto the last valid page for total rows
// (0 when there are none).
func (s ViewState) Clamp(total int) ViewState {
	next := s.clone()
	next.Page.Size = s.pageSize()
	last := PageCount(total, next.Page.Size) - 1
	if next.Page.Index > last {
		next.Page.Index = last
	}
	if next.Page.Index < 0 {
		next.Page.Index = 0
	}
	return next
}

func (s ViewState) CanPrev() bool {
	return s.Page.Index > 0
}

func (s ViewState) CanNext(total int) bool {
	return s.Page.Index+1 < PageCount(total, s.pageSize())
}

func (s ViewState) NextPage(total int) ViewState {
	if !s.CanNext(total) {
		return s
	}
	return s.WithPage(s.Page.Index + 1)
}

func (s ViewState) PrevPage() ViewState {
	if !s.CanPrev() {
		return s
	}
	return s.WithPage(s.Page.Index - 1)
}
