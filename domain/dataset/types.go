package dataset

import (
	"time"

	"statlab/domain/core"
)

// Status represents the processing state of a dataset
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// ColumnType classifies a column for analysis selection
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
)

// Column describes one column of an ingested table
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	MissingRate float64    `json:"missing_rate"`
	UniqueCount int        `json:"unique_count"`
}

// Dataset represents a stored dataset with its parsed table
type Dataset struct {
	ID               core.DatasetID `json:"id"`
	Name             string         `json:"name"`
	OriginalFilename string         `json:"original_filename"`
	Source           string         `json:"source"` // "upload", "api"

	RowCount    int     `json:"row_count"`
	ColumnCount int     `json:"column_count"`
	MissingRate float64 `json:"missing_rate"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Table is the parsed data. Omitted from listing responses.
	Table *Table `json:"table,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns a copy without the table payload, for listings.
func (d *Dataset) Summary() Dataset {
	out := *d
	out.Table = nil
	return out
}
