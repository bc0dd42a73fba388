// Package report turns a Sentinel domain document into terminal tables.
//
// Each facet of the document is extracted on its own; a facet that is missing
// or malformed is reported by name and never stops its siblings. Generator
// wraps fetch and extraction in a bounded retry loop because some facets,
// classification in particular, are filled in by the API after the first
// lookup of a domain.
package report

import "strings"

type Section int

const (
	SectionCategories Section = iota
	SectionDNS
	SectionGeoIP
	SectionTLS
	SectionWhois
)

// AllSections is the fixed render order.
var AllSections = []Section{SectionCategories, SectionDNS, SectionGeoIP, SectionTLS, SectionWhois}

func (s Section) String() string {
	switch s {
	case SectionCategories:
		return "categories"
	case SectionDNS:
		return "DNS records"
	case SectionGeoIP:
		return "GeoIP data"
	case SectionTLS:
		return "TLS data"
	case SectionWhois:
		return "WHOIS data"
	}
	return "unknown"
}

// Title is the heading printed above the section's table.
func (s Section) Title() string {
	switch s {
	case SectionCategories:
		return "Domain Categories"
	case SectionDNS:
		return "DNS Records"
	case SectionGeoIP:
		return "GeoIP Snapshot"
	case SectionTLS:
		return "TLS Results"
	case SectionWhois:
		return "WHOIS Data"
	}
	return ""
}

// Sections holds the per-facet toggles from the command line.
type Sections struct {
	Categories bool
	DNS        bool
	GeoIP      bool
	TLS        bool
	Whois      bool
}

// Resolve applies the selection rule: no toggles at all means every section.
func (s Sections) Resolve() Sections {
	if s == (Sections{}) {
		return Sections{Categories: true, DNS: true, GeoIP: true, TLS: true, Whois: true}
	}
	return s
}

func (s Sections) Enabled(sec Section) bool {
	switch sec {
	case SectionCategories:
		return s.Categories
	case SectionDNS:
		return s.DNS
	case SectionGeoIP:
		return s.GeoIP
	case SectionTLS:
		return s.TLS
	case SectionWhois:
		return s.Whois
	}
	return false
}

func joinSections(secs []Section) string {
	names := make([]string, len(secs))
	for i, s := range secs {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
