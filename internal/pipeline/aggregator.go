// Package pipeline wires the store, engine and inbox together and computes
// the portfolio aggregates shown by the CLI, the dashboard and the daemon.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/atlas/internal/model"
)

// Aggregate computes the portfolio-wide summary.
func Aggregate(st model.State) model.SummaryStats {
	var stats model.SummaryStats

	for _, p := range st.Properties {
		stats.Properties++
		if len(p.Units) > 0 {
			stats.Units += len(p.Units)
			for _, u := range p.Units {
				if u.Status == model.PropertyRented {
					stats.OccupiedUnits++
				}
			}
		} else {
			stats.Units++
			if p.Status == model.PropertyRented {
				stats.OccupiedUnits++
			}
		}
		stats.MonthlyRent += p.EffectiveRent()
		stats.MonthlyExpenses += p.MonthlyExpenses
	}
	if stats.Units > 0 {
		stats.OccupancyRate = float64(stats.OccupiedUnits) / float64(stats.Units)
	}

	for _, l := range st.Loans {
		stats.MonthlyDebt += l.MonthlyPayment
		stats.PendingCapital += l.PendingCapital
	}
	stats.NetMonthly = stats.MonthlyRent - stats.MonthlyExpenses - stats.MonthlyDebt

	for _, a := range st.Accounts {
		stats.TotalBalance += a.BalanceToday
		stats.BalanceDelta7 += a.BalanceToday - a.BalanceT7
		stats.BalanceDelta30 += a.BalanceToday - a.BalanceT30
		if a.Health != model.HealthOK {
			stats.AccountsAtRisk++
		}
	}

	for _, d := range st.Documents {
		if d.Status == model.StatusValidated {
			continue
		}
		stats.PendingDocuments++
		stats.PendingAmount += d.Amount
	}

	for _, a := range st.Alerts {
		if !a.Dismissed {
			stats.OpenAlerts++
		}
	}

	return stats
}

// AggregateProperties computes per-property statistics, sorted by net
// monthly result descending.
func AggregateProperties(st model.State) []model.PropertyStats {
	propMap := make(map[string]*model.PropertyStats, len(st.Properties))
	order := make([]string, 0, len(st.Properties))

	for _, p := range st.Properties {
		propMap[p.ID] = &model.PropertyStats{
			PropertyID:      p.ID,
			Alias:           p.Alias,
			Status:          p.Status,
			MonthlyRent:     p.EffectiveRent(),
			MonthlyExpenses: p.MonthlyExpenses,
		}
		order = append(order, p.ID)
	}

	for _, l := range st.Loans {
		if ps, ok := propMap[l.PropertyID]; ok {
			ps.MonthlyDebt += l.MonthlyPayment
			ps.PendingCapital += l.PendingCapital
		}
	}
	for _, d := range st.Documents {
		if ps, ok := propMap[d.PropertyID]; ok {
			ps.Documents++
			ps.DocumentsAmount += d.Amount
		}
	}

	props := make([]model.PropertyStats, 0, len(order))
	for _, id := range order {
		ps := propMap[id]
		ps.NetMonthly = ps.MonthlyRent - ps.MonthlyExpenses - ps.MonthlyDebt
		props = append(props, *ps)
	}
	sort.SliceStable(props, func(i, j int) bool {
		return props[i].NetMonthly > props[j].NetMonthly
	})

	return props
}

// AggregateAccounts computes the treasury view of every account, including a
// forecast balance after all predicted items. Order follows the document.
func AggregateAccounts(st model.State) []model.AccountStats {
	predicted := make(map[string]float64)
	for _, it := range st.PredictedItems {
		predicted[it.AccountID] += it.Amount
	}

	accounts := make([]model.AccountStats, 0, len(st.Accounts))
	for _, a := range st.Accounts {
		accounts = append(accounts, model.AccountStats{
			AccountID: a.ID,
			Name:      a.Name,
			Bank:      a.Bank,
			Balance:   a.BalanceToday,
			Target:    a.TargetBalance,
			Delta7:    a.BalanceToday - a.BalanceT7,
			Delta30:   a.BalanceToday - a.BalanceT30,
			Health:    a.Health,
			Forecast:  a.BalanceToday + predicted[a.ID],
		})
	}
	return accounts
}

// Cashflow groups predicted items by calendar month, oldest first.
func Cashflow(st model.State) []model.MonthlyCashflow {
	monthMap := make(map[string]*model.MonthlyCashflow)

	for _, it := range st.PredictedItems {
		key := it.Date.Format("2006-01")
		mc, ok := monthMap[key]
		if !ok {
			mc = &model.MonthlyCashflow{
				Month: time.Date(it.Date.Year(), it.Date.Month(), 1, 0, 0, 0, 0, it.Date.Location()),
			}
			monthMap[key] = mc
		}
		if it.Amount >= 0 {
			mc.Inflows += it.Amount
		} else {
			mc.Outflows += -it.Amount
		}
		mc.Items++
	}

	months := make([]model.MonthlyCashflow, 0, len(monthMap))
	for _, mc := range monthMap {
		mc.Net = mc.Inflows - mc.Outflows
		months = append(months, *mc)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month.Before(months[j].Month)
	})

	return months
}

// DocumentFilter narrows a document listing. Zero fields match everything.
type DocumentFilter struct {
	Status     string
	PropertyID string
	Provider   string // case-insensitive substring
	Since      time.Time
	Until      time.Time
}

// FilterDocuments returns documents matching f, most recent first.
func FilterDocuments(docs []model.Document, f DocumentFilter) []model.Document {
	var result []model.Document
	for _, d := range docs {
		if f.Status != "" && !strings.EqualFold(d.Status, f.Status) {
			continue
		}
		if f.PropertyID != "" && d.PropertyID != f.PropertyID {
			continue
		}
		if f.Provider != "" && !containsIgnoreCase(d.Provider, f.Provider) {
			continue
		}
		if !f.Since.IsZero() && d.Date.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !d.Date.Before(f.Until) {
			continue
		}
		result = append(result, d)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result
}

// OpenAlerts returns undismissed alerts, most recent first.
func OpenAlerts(alerts []model.Alert) []model.Alert {
	var result []model.Alert
	for _, a := range alerts {
		if !a.Dismissed {
			result = append(result, a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
