package tableview

import (
	"cmp"
	"fmt"
)

// Column projects a record onto a typed, comparable value. Tables only look at
// records through their columns.
type Column[R any] interface {
	ID() string
	Header() string
	Sortable() bool
	// Compare orders two records by the column value (negative, zero, positive).
	Compare(a, b R) int
	// Match reports whether the record satisfies a filter value for this column.
	Match(record R, value string) bool
	// Text renders the column value for display and export.
	Text(record R) string
}

type columnOptions[R any] struct {
	header   string
	sortable bool
	filter   func(R, string) bool
	text     func(R) string
}

// ColumnOption customises a column built with NewColumn.
type ColumnOption[R any] func(*columnOptions[R])

// WithHeader sets the human readable header. Defaults to the column id.
func WithHeader[R any](header string) ColumnOption[R] {
	return func(o *columnOptions[R]) { o.header = header }
}

// Sortable enables header-click sorting on the column.
func Sortable[R any]() ColumnOption[R] {
	return func(o *columnOptions[R]) { o.sortable = true }
}

// WithFilter replaces the default exact-match filter predicate.
func WithFilter[R any](predicate func(R, string) bool) ColumnOption[R] {
	return func(o *columnOptions[R]) { o.filter = predicate }
}

// WithText replaces the default fmt.Sprint rendering of the accessor value.
func WithText[R any](text func(R) string) ColumnOption[R] {
	return func(o *columnOptions[R]) { o.text = text }
}

type column[R any, V cmp.Ordered] struct {
	id       string
	accessor func(R) V
	opts     columnOptions[R]
}

// NewColumn builds a column from a typed accessor. The value type fixes the
// natural ordering used for sorting: numeric for numbers, lexicographic for
// strings.
func NewColumn[R any, V cmp.Ordered](id string, accessor func(R) V, options ...ColumnOption[R]) Column[R] {
	if id == "" {
		panic("tableview: column id must not be empty")
	}
	if accessor == nil {
		panic(fmt.Sprintf("tableview: column %q has no accessor", id))
	}
	c := &column[R, V]{id: id, accessor: accessor}
	for _, opt := range options {
		opt(&c.opts)
	}
	if c.opts.header == "" {
		c.opts.header = id
	}
	return c
}

func (c *column[R, V]) ID() string     { return c.id }
func (c *column[R, V]) Header() string { return c.opts.header }
func (c *column[R, V]) Sortable() bool { return c.opts.sortable }

func (c *column[R, V]) Compare(a, b R) int {
	return cmp.Compare(c.accessor(a), c.accessor(b))
}

func (c *column[R, V]) Match(record R, value string) bool {
	if c.opts.filter != nil {
		return c.opts.filter(record, value)
	}
	return fmt.Sprint(c.accessor(record)) == value
}

func (c *column[R, V]) Text(record R) string {
	if c.opts.text != nil {
		return c.opts.text(record)
	}
	return fmt.Sprint(c.accessor(record))
}
