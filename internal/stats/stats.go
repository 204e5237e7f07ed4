// Package stats prepares per-status time aggregates for display. Hour totals
// and shares are computed with decimals so long periods do not accumulate
// float drift.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/statusboard/internal/models"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Row is one status aggregate enriched with derived display values.
type Row struct {
	models.StatusStat

	// Hours is TotalSeconds converted to hours, two decimal places.
	Hours decimal.Decimal

	// Share is the percentage of the employee's total tracked time, one
	// decimal place. Zero when nothing is tracked yet.
	Share decimal.Decimal
}

// Summary is the per-employee statistics view, rows sorted by total time
// descending.
type Summary struct {
	Rows         []Row
	TotalSeconds int64
}

func Build(aggregates []models.StatusStat) Summary {
	var total int64
	for _, s := range aggregates {
		total += s.TotalSeconds
	}

	totalDec := decimal.NewFromInt(total)
	hundred := decimal.NewFromInt(100)

	rows := make([]Row, 0, len(aggregates))
	for _, s := range aggregates {
		row := Row{
			StatusStat: s,
			Hours:      decimal.NewFromInt(s.TotalSeconds).DivRound(secondsPerHour, 2),
		}
		if total > 0 {
			row.Share = decimal.NewFromInt(s.TotalSeconds).Mul(hundred).DivRound(totalDec, 1)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalSeconds > rows[j].TotalSeconds
	})

	return Summary{Rows: rows, TotalSeconds: total}
}
