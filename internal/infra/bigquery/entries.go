package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
)

// EntryRow mirrors one row of <dataset>.ledger_entries.
type EntryRow struct {
	EntryID string `bigquery:"entry_id"` // REQUIRED

	Item     string     `bigquery:"item"`       // REQUIRED
	Amount   *big.Rat   `bigquery:"amount"`     // REQUIRED NUMERIC
	Date     civil.Date `bigquery:"value_date"` // REQUIRED
	Category string     `bigquery:"category"`   // REQUIRED
	Flow     string     `bigquery:"flow"`       // REQUIRED, income|expense

	Description string `bigquery:"description"` // NULLABLE in schema, written as ""

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}
