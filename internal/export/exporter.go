// Package export publishes period statements as CSV objects.
package export

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/balance"
)

// StatementSource produces the statement of an inclusive period.
type StatementSource interface {
	Period(ctx context.Context, start, end civil.Date) (balance.Statement, error)
}

// Exporter writes statements to a bucket.
type Exporter struct {
	source StatementSource
	writer ObjectWriter
	bucket string
	log    zerolog.Logger
}

// NewExporter creates an exporter writing into bucket.
func NewExporter(source StatementSource, writer ObjectWriter, bucket string, log zerolog.Logger) *Exporter {
	return &Exporter{
		source: source,
		writer: writer,
		bucket: bucket,
		log:    log,
	}
}

// ObjectName is where the statement of [start, end] is stored.
func ObjectName(start, end civil.Date) string {
	return fmt.Sprintf("statements/%s_%s.csv", start, end)
}

// Export renders the statement of [start, end] and uploads it, returning the
// gs:// URI of the object. An existing object for the same period is replaced.
func (e *Exporter) Export(ctx context.Context, start, end civil.Date) (string, error) {
	if e.bucket == "" {
		return "", fmt.Errorf("Export: no bucket configured")
	}

	stmt, err := e.source.Period(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("Export: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, stmt); err != nil {
		return "", fmt.Errorf("Export: render csv: %w", err)
	}

	object := ObjectName(start, end)
	if err := e.writer.WriteObject(ctx, e.bucket, object, "text/csv", &buf); err != nil {
		return "", fmt.Errorf("Export: upload %s: %w", object, err)
	}

	uri := ObjectURI(e.bucket, object)
	e.log.Info().
		Str("uri", uri).
		Int("entries", stmt.Count()).
		Str("balance", stmt.Total.StringFixed(2)).
		Msg("Statement exported")
	return uri, nil
}
