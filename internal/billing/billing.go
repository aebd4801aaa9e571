// Package billing holds the decisions made while turning time entries
// into invoice lines. Nothing in here talks to a provider or a terminal.
package billing

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// BilledTag marks a time entry that has been invoiced.
const BilledTag = "billed"

const homeCountry = "NL"

var euCountries = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GB", "GR", "HU",
	"HR", "IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
}

// TaxRates are the configured tax rate ids; an empty id means the rate
// is not overridden.
type TaxRates struct {
	InsideEU  string
	OutsideEU string
}

// InEU reports whether country is in the fixed EU country-code set.
func InEU(country string) bool {
	return slices.Contains(euCountries, strings.ToUpper(country))
}

// TaxRateID picks the tax rate for a contact's country. Domestic contacts
// never get an override; "" means no tax rate is set on the line.
func TaxRateID(country string, rates TaxRates) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == homeCountry {
		return ""
	}
	if InEU(country) {
		return rates.InsideEU
	}
	return rates.OutsideEU
}

// EntryLabel is the text shown for an entry in the selection list.
func EntryLabel(description string, d time.Duration, tags []string) string {
	label := description + " - duration: " + FormatHHMMSS(d)
	if len(tags) > 0 {
		label += " [" + strings.Join(tags, ", ") + "]"
	}
	return label
}

var warningWords = []string{"fix", "bug"}

// Warning returns a caution message for an entry that looks like it
// should not be billed, or "" when there is nothing to report.
func Warning(description string, tags []string) string {
	if slices.Contains(tags, BilledTag) {
		return fmt.Sprintf("Caution; this time entry is already tagged %q: %s", BilledTag, description)
	}
	texts := append([]string{description}, tags...)
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, word := range warningWords {
			if strings.Contains(lower, word) {
				return "Caution; you are about to invoice a time entry that indicates it is a bug fix: " + description
			}
		}
	}
	return ""
}

// AddTag returns tags with tag added. Duplicates, including any that were
// already present, are dropped and the original order is kept.
func AddTag(tags []string, tag string) []string {
	seen := make(map[string]bool, len(tags)+1)
	out := make([]string, 0, len(tags)+1)
	for _, t := range append(slices.Clone(tags), tag) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ContactName derives the display name of a contact: the company name,
// followed by "(first last)" when both names are set, or "first last"
// for contacts without a company.
func ContactName(company, first, last string) string {
	if company != "" {
		if first != "" && last != "" {
			return company + " (" + first + " " + last + ")"
		}
		return company
	}
	return strings.TrimSpace(first + " " + last)
}
