package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costportal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	records := []model.CostRequest{
		{ApprovedValue: 100, RequestedValue: 150, FreightValue: 500, InvoiceValue: 10000, CreatedAt: day(2025, 1, 10)},
		{ApprovedValue: 300, RequestedValue: 300, FreightValue: 1500, InvoiceValue: 30000, CreatedAt: day(2025, 2, 5)},
	}

	s := Summarize(records)

	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 400, s.TotalApproved, 1e-9)
	assert.InDelta(t, 2000, s.TotalFreight, 1e-9)
	assert.InDelta(t, 40000, s.TotalInvoice, 1e-9)
	assert.InDelta(t, 2400, s.OperationalCost, 1e-9)
	assert.InDelta(t, 200, s.AverageTicket, 1e-9)
	assert.InDelta(t, 5, s.FreightInvoicePct, 1e-9)
	assert.InDelta(t, 20, s.ExtraFreightPct, 1e-9)
	assert.InDelta(t, 1, s.ExtraInvoicePct, 1e-9)
	assert.InDelta(t, 450, s.TotalRequested, 1e-9)
	assert.InDelta(t, 50, s.TotalSaving, 1e-9)
	assert.InDelta(t, 50.0/450*100, s.SavingPct, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.Count)
	assert.Zero(t, s.AverageTicket)
	assert.Zero(t, s.FreightInvoicePct)
	assert.Zero(t, s.ExtraFreightPct)
	assert.Zero(t, s.ExtraInvoicePct)
	assert.Zero(t, s.SavingPct)
}

func TestSummarizeZeroDenominators(t *testing.T) {
	records := []model.CostRequest{
		{ApprovedValue: 100, FreightValue: 0, InvoiceValue: 0, RequestedValue: 0},
	}

	s := Summarize(records)

	assert.Zero(t, s.FreightInvoicePct)
	assert.Zero(t, s.ExtraFreightPct)
	assert.Zero(t, s.ExtraInvoicePct)
	assert.Zero(t, s.SavingPct)
	assert.InDelta(t, 100, s.AverageTicket, 1e-9)
}

func TestMonthlySeriesChronologicalOrder(t *testing.T) {
	records := []model.CostRequest{
		{ApprovedValue: 10, FreightValue: 100, CreatedAt: day(2025, 3, 15)},
		{ApprovedValue: 20, FreightValue: 200, CreatedAt: day(2024, 12, 1)},
		{ApprovedValue: 30, FreightValue: 300, CreatedAt: day(2025, 3, 28)},
		{ApprovedValue: 40, FreightValue: 400, CreatedAt: day(2025, 1, 2)},
	}

	series := MonthlySeries(records)

	require.Len(t, series, 3)
	assert.Equal(t, "dez/24", series[0].Label)
	assert.Equal(t, "jan/25", series[1].Label)
	assert.Equal(t, "mar/25", series[2].Label)
	assert.InDelta(t, 40, series[2].Extra, 1e-9)
	assert.InDelta(t, 400, series[2].Freight, 1e-9)
	assert.Equal(t, 2, series[2].Count)
}

func TestDailySeriesSortsByDateNotLabel(t *testing.T) {
	// the labels sort the other way around lexicographically
	records := []model.CostRequest{
		{ApprovedValue: 1, CreatedAt: day(2025, 2, 1)}, // 01/02/2025
		{ApprovedValue: 2, CreatedAt: day(2025, 1, 2)}, // 02/01/2025
	}

	series := DailySeries(records)

	require.Len(t, series, 2)
	assert.Equal(t, "02/01/2025", series[0].Label)
	assert.Equal(t, "01/02/2025", series[1].Label)
}

func TestGroupByDepartmentFallback(t *testing.T) {
	records := []model.CostRequest{
		{ApprovedValue: 100, Department: model.DeptLogistics},
		{ApprovedValue: 50, Department: ""},
		{ApprovedValue: 25, Department: model.DeptLogistics},
	}

	buckets := GroupByDepartment(records)

	require.Len(t, buckets, 2)
	assert.Equal(t, model.DeptLogistics, buckets[0].Label)
	assert.InDelta(t, 125, buckets[0].Value, 1e-9)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, "Indefinido", buckets[1].Label)
}

func TestTopCarriers(t *testing.T) {
	records := []model.CostRequest{
		{CarrierName: "A", ApprovedValue: 10},
		{CarrierName: "B", ApprovedValue: 50},
		{CarrierName: "C", ApprovedValue: 30},
		{CarrierName: "B", ApprovedValue: 5},
	}

	top := TopCarriers(records, 2)

	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Label)
	assert.InDelta(t, 55, top[0].Value, 1e-9)
	assert.Equal(t, "C", top[1].Label)
}

func TestTopCarriersTieKeepsFirstAppearance(t *testing.T) {
	records := []model.CostRequest{
		{CarrierName: "X", ApprovedValue: 10},
		{CarrierName: "Y", ApprovedValue: 10},
	}

	top := TopCarriers(records, 5)

	require.Len(t, top, 2)
	assert.Equal(t, "X", top[0].Label)
	assert.Equal(t, "Y", top[1].Label)
}

func TestSavingByAnalyst(t *testing.T) {
	records := []model.CostRequest{
		{AnalystName: "ana", RequestedValue: 200, ApprovedValue: 150},
		{AnalystName: "", RequestedValue: 100, ApprovedValue: 90},
		{AnalystName: "ana", RequestedValue: 80, ApprovedValue: 80},
	}

	buckets := SavingByAnalyst(records)

	require.Len(t, buckets, 2)
	assert.Equal(t, "ana", buckets[0].Label)
	assert.InDelta(t, 50, buckets[0].Value, 1e-9)
	assert.Equal(t, "N/A", buckets[1].Label)
	assert.InDelta(t, 10, buckets[1].Value, 1e-9)
}

func TestSavingByCarrierLimit(t *testing.T) {
	var records []model.CostRequest
	for i := 0; i < 12; i++ {
		records = append(records, model.CostRequest{
			CarrierName:    string(rune('A' + i)),
			RequestedValue: float64(100 + i),
			ApprovedValue:  50,
		})
	}

	assert.Len(t, SavingByCarrier(records, 10), 10)
}

func TestCompositionGlobal(t *testing.T) {
	records := []model.CostRequest{
		{FreightValue: 1000, ApprovedValue: 200},
		{FreightValue: 500, ApprovedValue: 100},
	}

	comp := CompositionGlobal(records)

	require.Len(t, comp, 2)
	assert.Equal(t, "Frete Original", comp[0].Label)
	assert.InDelta(t, 1500, comp[0].Value, 1e-9)
	assert.Equal(t, "Custo Extra", comp[1].Label)
	assert.InDelta(t, 300, comp[1].Value, 1e-9)
}

func TestCarrierRankingDescending(t *testing.T) {
	records := []model.CostRequest{
		{CarrierName: "A", ApprovedValue: 1},
		{CarrierName: "B", ApprovedValue: 3},
		{CarrierName: "C", ApprovedValue: 2},
	}

	ranking := CarrierRanking(records)

	require.Len(t, ranking, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{ranking[0].Label, ranking[1].Label, ranking[2].Label})
}

func TestGroupedBreakdownsAddUpToTotals(t *testing.T) {
	records := []model.CostRequest{
		{BranchUF: "SP", CarrierName: "A", Reason: "REENTREGA", Department: "Logística", AnalystName: "Bruno", RequestedValue: 200, ApprovedValue: 150, FreightValue: 900, InvoiceValue: 9000, CreatedAt: day(2024, 12, 20)},
		{BranchUF: "SP", CarrierName: "B", Reason: "AVARIA", Department: "Comercial", AnalystName: "Carla", RequestedValue: 300, ApprovedValue: 300, FreightValue: 1100, InvoiceValue: 15000, CreatedAt: day(2025, 1, 5)},
		{BranchUF: "RJ", CarrierName: "A", Reason: "REENTREGA", RequestedValue: 500, ApprovedValue: 420, FreightValue: 700, InvoiceValue: 8000, CreatedAt: day(2025, 1, 5)},
		{BranchUF: "MG", CarrierName: "C", Reason: "DEVOLUÇÃO", Department: "Logística", AnalystName: "Bruno", RequestedValue: 90, ApprovedValue: 90, FreightValue: 400, InvoiceValue: 2500, CreatedAt: day(2025, 2, 17)},
	}
	s := Summarize(records)

	sum := func(buckets []Bucket) float64 {
		var total float64
		for _, b := range buckets {
			total += b.Value
		}
		return total
	}

	// every approved-value breakdown redistributes the same scalar total
	assert.InDelta(t, s.TotalApproved, sum(GroupByBranch(records)), 1e-9)
	assert.InDelta(t, s.TotalApproved, sum(GroupByReason(records)), 1e-9)
	assert.InDelta(t, s.TotalApproved, sum(GroupByDepartment(records)), 1e-9)
	assert.InDelta(t, s.TotalApproved, sum(CarrierRanking(records)), 1e-9)
	assert.InDelta(t, s.TotalApproved, sum(DailySeries(records)), 1e-9)
	assert.InDelta(t, s.TotalSaving, sum(SavingByAnalyst(records)), 1e-9)

	var freight, extra float64
	for _, m := range MonthlySeries(records) {
		freight += m.Freight
		extra += m.Extra
	}
	assert.InDelta(t, s.TotalFreight, freight, 1e-9)
	assert.InDelta(t, s.TotalApproved, extra, 1e-9)
}
