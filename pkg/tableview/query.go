package tableview

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter names shared by the API and its clients.
const (
	ParamSearch   = "q"
	ParamSort     = "sort"
	ParamDir      = "dir"
	ParamPage     = "page"
	ParamPageSize = "page_size"
	FilterPrefix  = "filter."
)

// ParseQuery decodes a view state from URL query parameters, starting from
// NewViewState.
func ParseQuery(values url.Values) (ViewState, error) {
	return ParseQueryInto(NewViewState(), values)
}

// ParseQueryInto decodes the parameters present in values on top of base.
// Absent parameters keep the base value. Page indexes are zero based.
func ParseQueryInto(base ViewState, values url.Values) (ViewState, error) {
	state := base.clone()

	if values.Has(ParamSearch) {
		state.GlobalSearch = strings.TrimSpace(values.Get(ParamSearch))
	}

	if values.Has(ParamSort) {
		column := strings.TrimSpace(values.Get(ParamSort))
		dir := Ascending
		if raw := values.Get(ParamDir); raw != "" {
			parsed, ok := ParseDirection(raw)
			if !ok {
				return ViewState{}, fmt.Errorf("%w: sort direction %q", ErrInvalidView, raw)
			}
			dir = parsed
		}
		state = state.WithSort(column, dir)
	} else if raw := values.Get(ParamDir); raw != "" && state.Sort != nil {
		parsed, ok := ParseDirection(raw)
		if !ok {
			return ViewState{}, fmt.Errorf("%w: sort direction %q", ErrInvalidView, raw)
		}
		state.Sort.Direction = parsed
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, FilterPrefix) || len(vals) == 0 {
			continue
		}
		column := strings.TrimPrefix(key, FilterPrefix)
		if column == "" {
			return ViewState{}, fmt.Errorf("%w: empty filter column", ErrInvalidView)
		}
		value := strings.TrimSpace(vals[0])
		if value == "" {
			delete(state.Filters, column)
			continue
		}
		if state.Filters == nil {
			state.Filters = make(map[string]string)
		}
		state.Filters[column] = value
	}

	if raw := values.Get(ParamPageSize); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return ViewState{}, fmt.Errorf("%w: page_size %q", ErrInvalidView, raw)
		}
		state.Page.Size = size
	}
	if raw := values.Get(ParamPage); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil || index < 0 {
			return ViewState{}, fmt.Errorf("%w: page %q", ErrInvalidView, raw)
		}
		state.Page.Index = index
	}
	if state.Page.Size <= 0 {
		state.Page.Size = DefaultPageSize
	}
	return state, nil
}

// Query encodes the state back into URL parameters.
func (s ViewState) Query() url.Values {
	values := url.Values{}
	if s.GlobalSearch != "" {
		values.Set(ParamSearch, s.GlobalSearch)
	}
	if s.Sort != nil && s.Sort.ColumnID != "" {
		values.Set(ParamSort, s.Sort.ColumnID)
		values.Set(ParamDir, string(s.Sort.Direction))
	}
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := s.Filters[k]; v != "" {
			values.Set(FilterPrefix+k, v)
		}
	}
	values.Set(ParamPage, strconv.Itoa(s.Page.Index))
	values.Set(ParamPageSize, strconv.Itoa(s.pageSize()))
	return values
}
