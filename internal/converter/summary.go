package converter

import (
	"fmt"
	"sort"

	"github.com/ginjaninja78/tenant-invoicer/internal/billing"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// Issue sources.
const (
	SourceWater   = "water"
	SourceBilling = "billing"
)

// Issue is a reported problem and the stage that raised it.
type Issue struct {
	*validation.ValidationError
	Source string
}

// Issues lists the rejected water rows followed by the billing issues.
func (b *Batch) Issues() []Issue {
	var out []Issue
	if b.Water != nil {
		for _, r := range b.Water.Rejected {
			out = append(out, Issue{ValidationError: r, Source: SourceWater})
		}
	}
	if b.Billing != nil {
		for _, e := range b.Billing.Issues.Errors {
			out = append(out, Issue{ValidationError: e, Source: SourceBilling})
		}
	}
	return out
}

// WarningSummary aggregates the problems of a batch for the operator.
type WarningSummary struct {
	Invoices        int
	Suppressed      int
	RejectedRows    int
	SkippedRows     int
	MissingWater    int
	UnmatchedWater  int
	WaterMismatches int
	Other           int
}

// Summary counts the issues of the batch by kind.
func (b *Batch) Summary() WarningSummary {
	var s WarningSummary
	if b.Billing != nil {
		s.Invoices = len(b.Billing.Invoices)
		s.Suppressed = len(b.Billing.Suppressed)
	}
	for _, issue := range b.Issues() {
		if issue.Source == SourceWater {
			s.RejectedRows++
			continue
		}
		switch issue.Rule {
		case billing.RuleNoLot, billing.RuleDuplicateLot, billing.RuleInvalidInvoice:
			s.SkippedRows++
		case billing.RuleNoWater:
			s.MissingWater++
		case billing.RuleOrphanWater:
			s.UnmatchedWater++
		case billing.RuleWaterMismatch:
			s.WaterMismatches++
		default:
			s.Other++
		}
	}
	return s
}

// Clean is true when nothing was rejected, skipped or mismatched.
func (s WarningSummary) Clean() bool {
	return s.RejectedRows+s.SkippedRows+s.MissingWater+s.UnmatchedWater+s.WaterMismatches+s.Other == 0
}

// Lines renders the non-zero counts, one per line.
func (s WarningSummary) Lines() []string {
	lines := []string{
		fmt.Sprintf("%d invoice(s), %d lot(s) with nothing due", s.Invoices, s.Suppressed),
	}
	add := func(n int, what string) {
		if n > 0 {
			lines = append(lines, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(s.RejectedRows, "water row(s) rejected")
	add(s.SkippedRows, "ledger row(s) skipped")
	add(s.MissingWater, "lot(s) billed without a water reading")
	add(s.UnmatchedWater, "water reading(s) without a ledger row")
	add(s.WaterMismatches, "water charge(s) differing from the metered price")
	add(s.Other, "other issue(s)")
	return lines
}

// RuleCounts tallies issues per source and rule, sorted by source then rule.
func (b *Batch) RuleCounts() []RuleCount {
	counts := make(map[RuleCount]int)
	for _, issue := range b.Issues() {
		counts[RuleCount{Source: issue.Source, Rule: issue.Rule, Severity: issue.Severity}]++
	}
	out := make([]RuleCount, 0, len(counts))
	for k, n := range counts {
		k.Count = n
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// RuleCount is the number of issues raised by one rule.
type RuleCount struct {
	Source   string
	Rule     string
	Severity string
	Count    int
}
