package service

import (
	"context"
	"fmt"
	"sort"

	"costportal/internal/analytics"
	"costportal/internal/filter"
	"costportal/internal/model"
	"costportal/internal/repository"
)

const (
	topCarrierLimit    = 5
	savingCarrierLimit = 10
)

// --- DTOs ---

type DashboardResponse struct {
	Summary           analytics.Summary         `json:"summary"`
	MonthlySeries     []analytics.MonthlyBucket `json:"monthly_series"`
	DailySeries       []analytics.Bucket        `json:"daily_series"`
	ByDepartment      []analytics.Bucket        `json:"by_department"`
	ByBranch          []analytics.Bucket        `json:"by_branch"`
	ByReason          []analytics.Bucket        `json:"by_reason"`
	TopCarriers       []analytics.Bucket        `json:"top_carriers"`
	CarrierRanking    []analytics.Bucket        `json:"carrier_ranking"`
	SavingByCarrier   []analytics.Bucket        `json:"saving_by_carrier"`
	SavingByAnalyst   []analytics.Bucket        `json:"saving_by_analyst"`
	CompositionGlobal []analytics.Bucket        `json:"composition_global"`
	Branches          []string                  `json:"branches"`
	Carriers          []string                  `json:"carriers"`
}

// --- Interface ---

type AnalyticsService interface {
	GetDashboard(ctx context.Context, f filter.Filter, actor Actor) (DashboardResponse, error)
}

type analyticsService struct {
	repo repository.RequestRepository
}

func NewAnalyticsService(repo repository.RequestRepository) AnalyticsService {
	return &analyticsService{repo: repo}
}

// GetDashboard computes every BI panel for the filtered record set. The
// branch and carrier selects list the distinct values of the UNFILTERED
// set within the actor's scope, so narrowing one filter never empties the
// other dropdowns.
func (s *analyticsService) GetDashboard(ctx context.Context, f filter.Filter, actor Actor) (DashboardResponse, error) {
	if actor.Branch != model.WildcardBranch {
		f.Branch = actor.Branch
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to list requests: %w", err)
	}

	scoped := all
	if actor.Branch != model.WildcardBranch {
		scopeFilter := filter.Filter{Branch: actor.Branch}
		scoped = scopeFilter.Apply(all)
	}
	matched := f.Apply(all)

	return DashboardResponse{
		Summary:           analytics.Summarize(matched),
		MonthlySeries:     analytics.MonthlySeries(matched),
		DailySeries:       analytics.DailySeries(matched),
		ByDepartment:      analytics.GroupByDepartment(matched),
		ByBranch:          analytics.GroupByBranch(matched),
		ByReason:          analytics.GroupByReason(matched),
		TopCarriers:       analytics.TopCarriers(matched, topCarrierLimit),
		CarrierRanking:    analytics.CarrierRanking(matched),
		SavingByCarrier:   analytics.SavingByCarrier(matched, savingCarrierLimit),
		SavingByAnalyst:   analytics.SavingByAnalyst(matched),
		CompositionGlobal: analytics.CompositionGlobal(matched),
		Branches:          distinct(scoped, func(r model.CostRequest) string { return r.BranchUF }),
		Carriers:          distinct(scoped, func(r model.CostRequest) string { return r.CarrierName }),
	}, nil
}

func distinct(records []model.CostRequest, key func(model.CostRequest) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
