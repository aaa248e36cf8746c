package notify

import (
	"context"
	"fmt"

	"costportal/internal/model"
)

// Dispatcher builds and sends the two portal alerts: the "new request"
// notice to approval staff and the decision notice to requesters.
type Dispatcher struct {
	sender             Sender
	staffTemplateID    string
	decisionTemplateID string
	portalURL          string
}

// NewDispatcher wires a dispatcher over the given sender. portalURL is the
// dashboard address embedded in the staff alert.
func NewDispatcher(sender Sender, staffTemplateID, decisionTemplateID, portalURL string) *Dispatcher {
	return &Dispatcher{
		sender:             sender,
		staffTemplateID:    staffTemplateID,
		decisionTemplateID: decisionTemplateID,
		portalURL:          portalURL,
	}
}

// StaffRecipients selects addresses of users flagged for notification whose
// branch matches the request's branch or is the wildcard. Result is
// deduplicated and comma-joined; empty when nobody matches.
func StaffRecipients(users []model.User, branchUF string) string {
	var lists []string
	for _, u := range users {
		if !u.ReceivesNotifications {
			continue
		}
		if u.Branch != branchUF && u.Branch != model.WildcardBranch {
			continue
		}
		lists = append(lists, u.Email)
	}
	return JoinEmails(lists...)
}

// StaffAlert notifies approval staff of a newly submitted request. Returns
// false without error when no staff member is configured to receive alerts
// for the branch.
func (d *Dispatcher) StaffAlert(ctx context.Context, req model.CostRequest, staff []model.User) (bool, error) {
	recipients := StaffRecipients(staff, req.BranchUF)
	if recipients == "" {
		return false, nil
	}

	params := map[string]string{
		"to_email":       recipients,
		"titulo":         fmt.Sprintf("🔔 NOVA SOLICITAÇÃO: %s | NF %s", req.BranchUF, req.InvoiceNumber),
		"filial":         req.BranchUF,
		"nf":             req.InvoiceNumber,
		"transportadora": req.CarrierName,
		"motivo":         req.Reason,
		"valor":          FormatBRL(req.RequestedValue),
		"solicitante":    req.RequesterName,
		"link_portal":    d.portalURL,
	}
	if err := d.sender.Send(ctx, d.staffTemplateID, params); err != nil {
		return false, fmt.Errorf("failed to send staff alert: %w", err)
	}
	return true, nil
}

// DecisionAlert notifies the requester and branch staff that a request was
// approved or rejected. Recipients are the union of the requester's
// addresses and the branch staff list, deduplicated. Returns false without
// error when the union is empty.
func (d *Dispatcher) DecisionAlert(ctx context.Context, req model.CostRequest, staff []model.User) (bool, error) {
	recipients := JoinEmails(req.RequesterEmails, StaffRecipients(staff, req.BranchUF))
	if recipients == "" {
		return false, nil
	}

	params := map[string]string{
		"to_email":       recipients,
		"status":         req.Status,
		"filial":         req.BranchUF,
		"nf":             req.InvoiceNumber,
		"transportadora": req.CarrierName,
		"valor":          FormatBRL(req.ApprovedValue),
		"assinatura":     req.ApproverSignature,
		"observacao":     req.Note,
	}
	if err := d.sender.Send(ctx, d.decisionTemplateID, params); err != nil {
		return false, fmt.Errorf("failed to send decision alert: %w", err)
	}
	return true, nil
}
