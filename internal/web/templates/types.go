// Package templates renders the dashboard HTML.
//
// Components are authored in .templ files; the *_templ.go files next to
// them are generated with `templ generate` and must not be edited by hand.
// This file holds the view models the components render.
package templates

// Option is one choice of a multi-select filter.
type Option struct {
	Value    string
	Selected bool
}

// FilterField is a repeatable filter parameter, such as include_bank.
type FilterField struct {
	Param   string
	Label   string
	Options []Option
}

// MappingRow shows which column a dimension resolved to. Column is empty
// when the dimension is absent.
type MappingRow struct {
	Dimension string
	Column    string
	Choices   []string
}

// StatCount is one value and how many filtered rows carry it.
type StatCount struct {
	Value string
	Count int
}

// StatBlock is the top values of one dimension.
type StatBlock struct {
	Title  string
	Counts []StatCount
}

// Dashboard is everything the index page shows.
type Dashboard struct {
	HasData bool
	Notice  string

	// ErrorMessage, when set, is shown as an ErrorAlert above the page.
	ErrorMessage string
	ErrorAction  string
	ErrorCode    string

	Source   string
	Encoding string
	Format   string
	LoadedAt string

	Filtered int
	Total    int
	Columns  int

	Prefix  string
	Text    string
	Prepaid string
	Dedupe  bool
	Filters []FilterField

	Mapping []MappingRow

	Header []string
	Rows   [][]string
	Page   int
	Pages  int

	// Paging and export links. Rendered through templ.URL.
	PrevURL   string
	NextURL   string
	ExportURL string

	Stats []StatBlock
}

type choice struct {
	Value string
	Label string
}

var prepaidChoices = []choice{
	{Value: "", Label: "Any"},
	{Value: "true", Label: "Yes"},
	{Value: "false", Label: "No"},
}
