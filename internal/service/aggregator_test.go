package service

import (
	"testing"

	"transitdesk/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sale(dep, arr, depTime string, seats int, amount int64) model.SaleRecord {
	return model.SaleRecord{
		Departure:     dep,
		Arrival:       arr,
		DepartureTime: depTime,
		SeatCount:     seats,
		Amount:        decimal.NewFromInt(amount),
	}
}

func TestAggregateSalesEmpty(t *testing.T) {
	summary := AggregateSales(nil)
	assert.Equal(t, 0, summary.TicketCount)
	assert.True(t, summary.AmountTotal.IsZero())
	assert.Empty(t, summary.Routes)
}

func TestAggregateSalesTotalsAndGrouping(t *testing.T) {
	records := []model.SaleRecord{
		sale("Bamako", "Sikasso", "09:00", 1, 5000),
		sale("Bamako", "Ségou", "10:30", 2, 7000),
		sale("Bamako", "Sikasso", "14:00", 1, 3000),
	}

	summary := AggregateSales(records)

	assert.Equal(t, 4, summary.TicketCount)
	assert.Equal(t, "15000", summary.AmountTotal.String())
	require.Len(t, summary.Routes, 2)

	// First appearance order: Sikasso before Ségou.
	assert.Equal(t, "Sikasso", summary.Routes[0].Arrival)
	assert.Equal(t, 2, summary.Routes[0].Tickets)
	assert.Equal(t, "8000", summary.Routes[0].Amount.String())
	assert.Equal(t, "Ségou", summary.Routes[1].Arrival)
	assert.Equal(t, 2, summary.Routes[1].Tickets)
	assert.Equal(t, "7000", summary.Routes[1].Amount.String())
}

func TestAggregateSalesReturnLegsCountTogether(t *testing.T) {
	// Outbound and return legs of the same sale arrive as two records whose
	// seats both count toward the ticket total.
	records := []model.SaleRecord{
		sale("Bamako", "Sikasso", "08:00", 2, 10000),
		sale("Sikasso", "Bamako", "18:00", 2, 10000),
	}

	summary := AggregateSales(records)

	assert.Equal(t, 4, summary.TicketCount)
	assert.Equal(t, "20000", summary.AmountTotal.String())
	// Opposite directions are distinct routes.
	require.Len(t, summary.Routes, 2)
}

func TestAggregateSalesDepartureTimesDistinctSorted(t *testing.T) {
	records := []model.SaleRecord{
		sale("Bamako", "Kayes", "14:00", 1, 1000),
		sale("Bamako", "Kayes", "07:30", 1, 1000),
		sale("Bamako", "Kayes", "14:00", 1, 1000),
		sale("Bamako", "Kayes", "10:00", 1, 1000),
	}

	summary := AggregateSales(records)

	require.Len(t, summary.Routes, 1)
	assert.Equal(t, []string{"07:30", "10:00", "14:00"}, summary.Routes[0].DepartureTimes)
}

func TestAggregateSalesIsPure(t *testing.T) {
	records := []model.SaleRecord{
		sale("Bamako", "Sikasso", "09:00", 1, 5000),
		sale("Bamako", "Ségou", "10:30", 2, 7000),
		sale("Bamako", "Sikasso", "14:00", 1, 3000),
	}

	first := AggregateSales(records)
	second := AggregateSales(records)
	assert.Equal(t, first, second)

	// Totals are independent of scan order; only emission order may differ.
	reversed := []model.SaleRecord{records[2], records[1], records[0]}
	shuffled := AggregateSales(reversed)
	assert.Equal(t, first.TicketCount, shuffled.TicketCount)
	assert.True(t, first.AmountTotal.Equal(shuffled.AmountTotal))
	assert.Len(t, shuffled.Routes, len(first.Routes))
}
