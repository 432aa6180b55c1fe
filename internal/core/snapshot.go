package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// Snapshot is one immutable generation of the loaded dataset.
type Snapshot struct {
	ID         uuid.UUID
	Generation uint64
	Source     string
	Encoding   string
	Format     string
	Table      *bins.Table
	Mapping    bins.Mapping
	LoadedAt   time.Time
}

// Meta describes the current dataset for building filter forms.
type Meta struct {
	Mapping bins.Mapping                `json:"mapping"`
	Options map[bins.Dimension][]string `json:"options"`
	Columns []string                    `json:"columns"`
}

// QueryRequest selects one page of filtered rows.
type QueryRequest struct {
	Criteria bins.Criteria
	Columns  []string
	Page     int
	PageSize int
}

// Page is a window onto the filtered table.
type Page struct {
	Rows     *bins.Table
	Total    int
	Page     int
	PageSize int
	Encoding string
}

// Stats summarizes the filtered table.
type Stats struct {
	Total     int                                  `json:"total"`
	Breakdown map[bins.Dimension][]bins.ValueCount `json:"breakdown"`
}
