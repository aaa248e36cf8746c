// Package analytics computes the BI view's KPI scalars and grouped
// breakdowns. Every function is a pure function of the record slice it
// receives — filtering and fetching happen upstream.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"costportal/internal/model"
)

// Summary holds the scalar KPIs for a filtered record set. Percentages are
// not clamped: values above 100 or below 0 are surfaced as-is so operational
// anomalies stay visible.
type Summary struct {
	TotalApproved   float64 `json:"total_approved"`
	TotalFreight    float64 `json:"total_freight"`
	TotalInvoice    float64 `json:"total_invoice"`
	OperationalCost float64 `json:"operational_cost"` // approved + freight
	Count           int     `json:"count"`
	AverageTicket   float64 `json:"average_ticket"`

	FreightInvoicePct float64 `json:"freight_invoice_pct"`
	ExtraFreightPct   float64 `json:"extra_freight_pct"`
	ExtraInvoicePct   float64 `json:"extra_invoice_pct"`

	TotalRequested float64 `json:"total_requested"`
	TotalSaving    float64 `json:"total_saving"`
	SavingPct      float64 `json:"saving_pct"`
}

// Bucket is one group of a categorical breakdown.
type Bucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// MonthlyBucket is one calendar month of the stacked freight/extra series.
type MonthlyBucket struct {
	Label   string  `json:"label"`
	Freight float64 `json:"freight"`
	Extra   float64 `json:"extra"`
	Count   int     `json:"count"`
}

var shortMonths = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Summarize computes the scalar KPIs. Every ratio with a zero denominator
// yields 0, never NaN.
func Summarize(records []model.CostRequest) Summary {
	var s Summary
	for _, r := range records {
		s.TotalApproved += r.ApprovedValue
		s.TotalFreight += r.FreightValue
		s.TotalInvoice += r.InvoiceValue
		s.TotalRequested += r.RequestedValue
		s.TotalSaving += r.Saving()
	}
	s.Count = len(records)
	s.OperationalCost = s.TotalApproved + s.TotalFreight

	if s.Count > 0 {
		s.AverageTicket = s.TotalApproved / float64(s.Count)
	}
	if s.TotalInvoice > 0 {
		s.FreightInvoicePct = s.TotalFreight / s.TotalInvoice * 100
		s.ExtraInvoicePct = s.TotalApproved / s.TotalInvoice * 100
	}
	if s.TotalFreight > 0 {
		s.ExtraFreightPct = s.TotalApproved / s.TotalFreight * 100
	}
	if s.TotalRequested > 0 {
		s.SavingPct = s.TotalSaving / s.TotalRequested * 100
	}
	return s
}

// MonthlySeries groups approved and freight values by calendar month,
// sorted chronologically. The label is the short month plus 2-digit year
// ("jan/25"); the sort key is the actual year+month, not the label.
func MonthlySeries(records []model.CostRequest) []MonthlyBucket {
	type entry struct {
		bucket MonthlyBucket
		month  time.Time
	}
	byKey := make(map[string]*entry)
	var entries []*entry

	for _, r := range records {
		y, m := r.CreatedAt.Year(), r.CreatedAt.Month()
		key := fmt.Sprintf("%04d-%02d", y, m)
		e, ok := byKey[key]
		if !ok {
			e = &entry{
				bucket: MonthlyBucket{Label: fmt.Sprintf("%s/%02d", shortMonths[m-1], y%100)},
				month:  time.Date(y, m, 1, 0, 0, 0, 0, time.UTC),
			}
			byKey[key] = e
			entries = append(entries, e)
		}
		e.bucket.Freight += r.FreightValue
		e.bucket.Extra += r.ApprovedValue
		e.bucket.Count++
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].month.Before(entries[j].month) })
	out := make([]MonthlyBucket, len(entries))
	for i, e := range entries {
		out[i] = e.bucket
	}
	return out
}

// groupBy accumulates value/count per label in first-appearance order.
func groupBy(records []model.CostRequest, label func(model.CostRequest) string, value func(model.CostRequest) float64) []Bucket {
	byLabel := make(map[string]int)
	var out []Bucket
	for _, r := range records {
		l := label(r)
		i, ok := byLabel[l]
		if !ok {
			i = len(out)
			byLabel[l] = i
			out = append(out, Bucket{Label: l})
		}
		out[i].Value += value(r)
		out[i].Count++
	}
	return out
}

// sortDesc orders buckets by value descending; ties keep first-appearance
// order.
func sortDesc(buckets []Bucket) []Bucket {
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Value > buckets[j].Value })
	return buckets
}

func approved(r model.CostRequest) float64 { return r.ApprovedValue }
func saving(r model.CostRequest) float64   { return r.Saving() }

// GroupByDepartment breaks approved value down by routing department.
func GroupByDepartment(records []model.CostRequest) []Bucket {
	return sortDesc(groupBy(records, func(r model.CostRequest) string {
		if r.Department == "" {
			return "Indefinido"
		}
		return r.Department
	}, approved))
}

// GroupByBranch breaks approved value down by branch UF.
func GroupByBranch(records []model.CostRequest) []Bucket {
	return sortDesc(groupBy(records, func(r model.CostRequest) string { return r.BranchUF }, approved))
}

// GroupByReason breaks approved value down by occurrence reason.
func GroupByReason(records []model.CostRequest) []Bucket {
	return sortDesc(groupBy(records, func(r model.CostRequest) string { return r.Reason }, approved))
}

// TopCarriers returns the n carriers with the highest approved value.
func TopCarriers(records []model.CostRequest, n int) []Bucket {
	return topN(sortDesc(groupBy(records, func(r model.CostRequest) string { return r.CarrierName }, approved)), n)
}

// CarrierRanking returns the full per-carrier breakdown, descending.
func CarrierRanking(records []model.CostRequest) []Bucket {
	return sortDesc(groupBy(records, func(r model.CostRequest) string { return r.CarrierName }, approved))
}

// SavingByCarrier returns the n carriers with the highest accumulated
// saving.
func SavingByCarrier(records []model.CostRequest, n int) []Bucket {
	return topN(sortDesc(groupBy(records, func(r model.CostRequest) string { return r.CarrierName }, saving)), n)
}

// SavingByAnalyst accumulates saving per analyst; records with no analyst
// fall into "N/A".
func SavingByAnalyst(records []model.CostRequest) []Bucket {
	return sortDesc(groupBy(records, func(r model.CostRequest) string {
		if r.AnalystName == "" {
			return "N/A"
		}
		return r.AnalystName
	}, saving))
}

// CompositionGlobal contrasts the original freight against the extra cost.
func CompositionGlobal(records []model.CostRequest) []Bucket {
	var freight, extra float64
	for _, r := range records {
		freight += r.FreightValue
		extra += r.ApprovedValue
	}
	n := len(records)
	return []Bucket{
		{Label: "Frete Original", Value: freight, Count: n},
		{Label: "Custo Extra", Value: extra, Count: n},
	}
}

// DailySeries groups approved value by calendar day. Labels use the
// day/month/year text format, but the sort key is the reconstructed date —
// sorting the label strings would order "02/01/2025" after "01/02/2025".
func DailySeries(records []model.CostRequest) []Bucket {
	type entry struct {
		i    int
		sort time.Time
	}
	byLabel := make(map[string]entry)
	var out []Bucket
	for _, r := range records {
		day := time.Date(r.CreatedAt.Year(), r.CreatedAt.Month(), r.CreatedAt.Day(), 0, 0, 0, 0, time.UTC)
		l := day.Format("02/01/2006")
		e, ok := byLabel[l]
		if !ok {
			e = entry{i: len(out), sort: day}
			byLabel[l] = e
			out = append(out, Bucket{Label: l})
		}
		out[e.i].Value += r.ApprovedValue
		out[e.i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return byLabel[out[i].Label].sort.Before(byLabel[out[j].Label].sort)
	})
	return out
}

func topN(buckets []Bucket, n int) []Bucket {
	if n >= 0 && len(buckets) > n {
		return buckets[:n]
	}
	return buckets
}
