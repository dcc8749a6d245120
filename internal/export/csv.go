package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dvloznov/ledger-balance/internal/balance"
	"github.com/dvloznov/ledger-balance/internal/domain"
)

var header = []string{"id", "date", "item", "category", "flow", "amount", "signed_amount", "description"}

// WriteStatementCSV writes one row per entry in statement order, followed by
// a balance row carrying the signed total in the signed_amount column.
func WriteStatementCSV(w io.Writer, stmt balance.Statement) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range stmt.Entries {
		record := []string{
			e.ID,
			e.Date.String(),
			e.Item,
			e.Category,
			string(e.Flow),
			domain.FormatAmount(e.Amount),
			domain.FormatAmount(e.SignedAmount()),
			e.Description,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write entry %s: %w", e.ID, err)
		}
	}

	balanceRow := []string{"", stmt.End.String(), "balance", "", "", "", domain.FormatAmount(stmt.Total), stmt.Summary()}
	if err := cw.Write(balanceRow); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
