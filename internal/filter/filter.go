// Package filter composes the dashboard's date-range, status, free-text and
// per-column predicates into a single conjunctive match applied to the
// in-memory record set after a bulk fetch.
package filter

import (
	"strings"
	"time"

	"costportal/internal/model"
)

// Column identifies a table column that accepts a per-column substring
// filter.
type Column string

const (
	ColBranch     Column = "branch"
	ColCarrier    Column = "carrier"
	ColInvoice    Column = "invoice"
	ColOrder      Column = "order"
	ColReason     Column = "reason"
	ColDepartment Column = "department"
	ColCostCenter Column = "cost_center"
	ColApprover   Column = "approver"
	ColCreatedAt  Column = "created_at"
	ColApprovedAt Column = "approved_at"
)

// StatusAll matches every status when used as the Status filter value.
const StatusAll = "Todos"

// dateLabel is the display format column filters match dates against.
const dateLabel = "02/01/2006"

// Filter describes all active dashboard filters. Zero values mean "not
// filtering on this"; all active filters are ANDed, so application order
// never changes the result.
type Filter struct {
	Start   *time.Time // inclusive calendar day, compared against CreatedAt
	End     *time.Time // inclusive calendar day
	Branch  string     // exact UF match
	Carrier string     // exact name match
	Status  string     // exact status, or empty/StatusAll for everything
	Text    string     // case-insensitive substring across search fields
	Columns map[Column]string
}

// Match reports whether a record passes every active filter.
func (f Filter) Match(r model.CostRequest) bool {
	if f.Start != nil && dayOf(r.CreatedAt).Before(dayOf(*f.Start)) {
		return false
	}
	if f.End != nil && dayOf(r.CreatedAt).After(dayOf(*f.End)) {
		return false
	}
	if f.Branch != "" && r.BranchUF != f.Branch {
		return false
	}
	if f.Carrier != "" && r.CarrierName != f.Carrier {
		return false
	}
	if f.Status != "" && f.Status != StatusAll && r.Status != f.Status {
		return false
	}
	if !f.matchText(r) {
		return false
	}
	for col, term := range f.Columns {
		if !matchColumn(r, col, term) {
			return false
		}
	}
	return true
}

// Apply returns the records passing Match, preserving input order.
func (f Filter) Apply(records []model.CostRequest) []model.CostRequest {
	out := make([]model.CostRequest, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// dayOf strips the clock so range bounds compare whole calendar days.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// matchText applies the free-text search: the term must appear in at least
// one of carrier name, invoice number, order number, reason or approver
// signature.
func (f Filter) matchText(r model.CostRequest) bool {
	term := strings.ToLower(strings.TrimSpace(f.Text))
	if term == "" {
		return true
	}
	for _, field := range []string{r.CarrierName, r.InvoiceNumber, r.OrderNumber, r.Reason, r.ApproverSignature} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// matchColumn applies one per-column substring filter. An empty term always
// passes; a record missing the field fails a non-empty term, since an empty
// string never contains a non-empty search term.
func matchColumn(r model.CostRequest, col Column, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	var value string
	switch col {
	case ColBranch:
		value = r.BranchUF
	case ColCarrier:
		value = r.CarrierName
	case ColInvoice:
		value = r.InvoiceNumber
	case ColOrder:
		value = r.OrderNumber
	case ColReason:
		value = r.Reason
	case ColDepartment:
		value = r.Department
	case ColCostCenter:
		value = r.CostCenter
	case ColApprover:
		value = r.ApproverSignature
	case ColCreatedAt:
		value = r.CreatedAt.Format(dateLabel)
	case ColApprovedAt:
		if r.ApprovedAt != nil {
			value = r.ApprovedAt.Format(dateLabel)
		}
	default:
		return false
	}

	return strings.Contains(strings.ToLower(value), term)
}
