package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costportal/internal/model"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func sample() []model.CostRequest {
	return []model.CostRequest{
		{BranchUF: "SP", CarrierName: "Rapidão", InvoiceNumber: "100", Status: model.StatusPending, CreatedAt: at(2025, 1, 10)},
		{BranchUF: "RJ", CarrierName: "Transduarte", InvoiceNumber: "200", Status: model.StatusApproved, CreatedAt: at(2025, 2, 15)},
		{BranchUF: "SP", CarrierName: "Transduarte", InvoiceNumber: "300", Status: model.StatusRejected, CreatedAt: at(2025, 3, 20)},
	}
}

func TestApplyEmptyFilterKeepsAll(t *testing.T) {
	records := sample()
	assert.Len(t, Filter{}.Apply(records), 3)
}

func TestApplyDateRangeInclusive(t *testing.T) {
	records := sample()
	start := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	got := Filter{Start: &start, End: &end}.Apply(records)

	require.Len(t, got, 2)
	assert.Equal(t, "200", got[0].InvoiceNumber)
	assert.Equal(t, "300", got[1].InvoiceNumber)
}

func TestApplyBranchAndCarrier(t *testing.T) {
	records := sample()

	got := Filter{Branch: "SP", Carrier: "Transduarte"}.Apply(records)

	require.Len(t, got, 1)
	assert.Equal(t, "300", got[0].InvoiceNumber)
}

func TestApplyStatusAllPasses(t *testing.T) {
	records := sample()
	assert.Len(t, Filter{Status: StatusAll}.Apply(records), 3)
	assert.Len(t, Filter{Status: model.StatusApproved}.Apply(records), 1)
}

func TestApplyTextSearchAcrossFields(t *testing.T) {
	records := sample()

	got := Filter{Text: "transd"}.Apply(records)
	assert.Len(t, got, 2)

	got = Filter{Text: "100"}.Apply(records)
	require.Len(t, got, 1)
	assert.Equal(t, "Rapidão", got[0].CarrierName)

	assert.Empty(t, Filter{Text: "xyz"}.Apply(records))
}

func TestApplyColumnTerms(t *testing.T) {
	records := sample()

	got := Filter{Columns: map[Column]string{ColCarrier: "duarte", ColBranch: "rj"}}.Apply(records)
	require.Len(t, got, 1)
	assert.Equal(t, "200", got[0].InvoiceNumber)

	// empty terms pass everything
	assert.Len(t, Filter{Columns: map[Column]string{ColCarrier: ""}}.Apply(records), 3)
}

func TestApplyColumnDateMatchesFormattedLabel(t *testing.T) {
	records := sample()

	got := Filter{Columns: map[Column]string{ColCreatedAt: "15/02/2025"}}.Apply(records)
	require.Len(t, got, 1)
	assert.Equal(t, "200", got[0].InvoiceNumber)
}

func TestApplyColumnMissingFieldFailsNonEmptyTerm(t *testing.T) {
	records := sample() // no record has an approval date

	assert.Empty(t, Filter{Columns: map[Column]string{ColApprovedAt: "2025"}}.Apply(records))
}

func TestApplyCommutative(t *testing.T) {
	records := sample()

	a := Filter{Branch: "SP", Status: model.StatusRejected}.Apply(records)
	b := Filter{Status: model.StatusRejected, Branch: "SP"}.Apply(records)

	assert.Equal(t, a, b)
	require.Len(t, a, 1)
}

func TestApplyPreservesOrder(t *testing.T) {
	records := sample()

	got := Filter{Carrier: "Transduarte"}.Apply(records)

	require.Len(t, got, 2)
	assert.True(t, got[0].CreatedAt.Before(got[1].CreatedAt))
}
