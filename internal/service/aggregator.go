package service

import (
	"sort"

	"transitdesk/internal/model"

	"github.com/shopspring/decimal"
)

// RouteTotal is one line of the per-route breakdown.
type RouteTotal struct {
	Departure string
	Arrival   string
	Tickets   int
	Amount    decimal.Decimal
	// DepartureTimes is the distinct set of scheduled departures seen for
	// the route, sorted ascending.
	DepartureTimes []string
}

// SalesSummary is the frozen aggregate written into a ShiftReport at close.
// Invariant: TicketCount == Σ Routes[].Tickets and AmountTotal == Σ
// Routes[].Amount.
type SalesSummary struct {
	TicketCount int
	AmountTotal decimal.Decimal
	Routes      []RouteTotal
}

// AggregateSales computes the counter-sales summary for one session. It is a
// pure function over the record set: identical inputs always yield identical
// totals. Routes are emitted in order of first appearance in the scanned set;
// that order is NOT a guarantee and callers must not depend on it.
//
// Seats on every matching record count toward TicketCount, so outbound and
// return legs of the same sale are summed together.
func AggregateSales(records []model.SaleRecord) SalesSummary {
	summary := SalesSummary{AmountTotal: decimal.Zero}
	index := make(map[string]int)
	times := make(map[string]map[string]struct{})

	for _, rec := range records {
		summary.TicketCount += rec.SeatCount
		summary.AmountTotal = summary.AmountTotal.Add(rec.Amount)

		key := rec.RouteKey()
		i, seen := index[key]
		if !seen {
			i = len(summary.Routes)
			index[key] = i
			times[key] = make(map[string]struct{})
			summary.Routes = append(summary.Routes, RouteTotal{
				Departure: rec.Departure,
				Arrival:   rec.Arrival,
				Amount:    decimal.Zero,
			})
		}
		summary.Routes[i].Tickets += rec.SeatCount
		summary.Routes[i].Amount = summary.Routes[i].Amount.Add(rec.Amount)
		times[key][rec.DepartureTime] = struct{}{}
	}

	for i := range summary.Routes {
		key := summary.Routes[i].Departure + "→" + summary.Routes[i].Arrival
		distinct := make([]string, 0, len(times[key]))
		for t := range times[key] {
			distinct = append(distinct, t)
		}
		sort.Strings(distinct)
		summary.Routes[i].DepartureTimes = distinct
	}

	return summary
}
