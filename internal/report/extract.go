package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sentinel-cli/internal/api"
)

type CategoryRow struct {
	Name            string
	Confidence      string
	ConfidenceLabel string
	Reasoning       string
}

type DNSRow struct {
	Type    string
	Address string
	TTL     string
}

type GeoIPRow struct {
	IP       string
	ASN      string
	ISP      string
	Location string
}

type TLSRow struct {
	Version    string
	Issuer     string
	ValidFrom  string
	ValidUntil string
}

type WhoisRow struct {
	Registrar  string
	Expires    string
	Registered string
	Updated    string
}

// Result is one attempt's extraction. Only enabled sections are populated,
// and a section with an entry in Errors has no rows.
type Result struct {
	Categories []CategoryRow
	DNS        []DNSRow
	GeoIP      []GeoIPRow
	TLS        *TLSRow
	Whois      *WhoisRow

	Errors map[Section]error
}

// Failed lists the sections that could not be extracted, in render order.
func (r *Result) Failed() []Section {
	var out []Section
	for _, s := range AllSections {
		if r.Errors[s] != nil {
			out = append(out, s)
		}
	}
	return out
}

func (r *Result) OK(s Section) bool {
	return r.Errors[s] == nil
}

// Extract runs every enabled extractor against doc.
func Extract(doc *api.Document, sel Sections) *Result {
	res := &Result{Errors: make(map[Section]error)}

	f, err := doc.Features()
	if err != nil {
		for _, s := range AllSections {
			if sel.Enabled(s) {
				res.Errors[s] = err
			}
		}
		return res
	}

	if sel.Categories {
		res.Categories, err = ExtractCategories(f)
		record(res, SectionCategories, err)
	}
	if sel.DNS {
		res.DNS, err = ExtractDNS(f)
		record(res, SectionDNS, err)
	}
	if sel.GeoIP {
		res.GeoIP, err = ExtractGeoIP(f)
		record(res, SectionGeoIP, err)
	}
	if sel.TLS {
		var row TLSRow
		row, err = ExtractTLS(f)
		if err == nil {
			res.TLS = &row
		}
		record(res, SectionTLS, err)
	}
	if sel.Whois {
		var row WhoisRow
		row, err = ExtractWhois(f)
		if err == nil {
			res.Whois = &row
		}
		record(res, SectionWhois, err)
	}
	return res
}

func record(res *Result, s Section, err error) {
	if err != nil {
		res.Errors[s] = err
	}
}

type classificationFacet struct {
	Categories json.RawMessage `json:"categories"`
}

type categoryEntry struct {
	Name            json.RawMessage `json:"name"`
	Confidence      json.RawMessage `json:"confidence"`
	ConfidenceLabel json.RawMessage `json:"confidenceLabel"`
	Reasoning       json.RawMessage `json:"reasoning"`
}

// ExtractCategories reads features.classification.categories. Both keys are
// required; an empty list is a valid, empty result.
func ExtractCategories(f *api.Features) ([]CategoryRow, error) {
	if f.Classification == nil {
		return nil, errors.New("missing classification")
	}
	var cls classificationFacet
	if err := decodeObject(f.Classification, &cls); err != nil {
		return nil, fmt.Errorf("classification: %w", err)
	}
	if api.IsNull(cls.Categories) {
		return nil, errors.New("missing classification.categories")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(cls.Categories, &entries); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	rows := make([]CategoryRow, 0, len(entries))
	for i, raw := range entries {
		var e categoryEntry
		if err := decodeObject(raw, &e); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		rows = append(rows, CategoryRow{
			Name:            display(e.Name),
			Confidence:      display(e.Confidence),
			ConfidenceLabel: display(e.ConfidenceLabel),
			Reasoning:       display(e.Reasoning),
		})
	}
	return rows, nil
}

type dnsFacet struct {
	Records json.RawMessage `json:"records"`
}

type dnsRecord struct {
	Value json.RawMessage `json:"value"`
	TTL   json.RawMessage `json:"ttl"`
}

// ExtractDNS flattens features.dns.records into one row per record. Each
// record type maps to a single record or a list of them; a record is either
// a bare address or an object with value and ttl.
func ExtractDNS(f *api.Features) ([]DNSRow, error) {
	if f.DNS == nil {
		return nil, errors.New("missing dns")
	}
	var facet dnsFacet
	if err := decodeObject(f.DNS, &facet); err != nil {
		return nil, fmt.Errorf("dns: %w", err)
	}
	if api.IsNull(facet.Records) {
		return nil, errors.New("missing dns.records")
	}
	var byType map[string]json.RawMessage
	if err := decodeObject(facet.Records, &byType); err != nil {
		return nil, fmt.Errorf("dns.records: %w", err)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var rows []DNSRow
	for _, typ := range types {
		raw := bytes.TrimSpace(byType[typ])
		if api.IsNull(raw) {
			continue
		}
		if raw[0] != '[' {
			rows = append(rows, dnsRow(typ, raw))
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("dns.records.%s: %w", typ, err)
		}
		for _, rec := range list {
			if api.IsNull(bytes.TrimSpace(rec)) {
				continue
			}
			rows = append(rows, dnsRow(typ, rec))
		}
	}
	return rows, nil
}

func dnsRow(typ string, raw json.RawMessage) DNSRow {
	var rec dnsRecord
	if decodeObject(raw, &rec) != nil {
		return DNSRow{Type: typ, Address: display(raw)}
	}
	return DNSRow{Type: typ, Address: display(rec.Value), TTL: display(rec.TTL)}
}

type geoIPFacet struct {
	IPLocations json.RawMessage `json:"ipLocations"`
}

type ipLocation struct {
	ASN          json.RawMessage `json:"asn"`
	Organization json.RawMessage `json:"organization"`
	Location     json.RawMessage `json:"location"`
}

// ExtractGeoIP reads features.geoip.ipLocations, one row per IP in sorted
// order. An absent geoip facet is an empty result.
func ExtractGeoIP(f *api.Features) ([]GeoIPRow, error) {
	if f.GeoIP == nil {
		return nil, nil
	}
	var facet geoIPFacet
	if err := decodeObject(f.GeoIP, &facet); err != nil {
		return nil, fmt.Errorf("geoip: %w", err)
	}
	if api.IsNull(facet.IPLocations) {
		return nil, nil
	}
	var byIP map[string]json.RawMessage
	if err := decodeObject(facet.IPLocations, &byIP); err != nil {
		return nil, fmt.Errorf("geoip.ipLocations: %w", err)
	}

	ips := make([]string, 0, len(byIP))
	for ip := range byIP {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	rows := make([]GeoIPRow, 0, len(ips))
	for _, ip := range ips {
		var loc ipLocation
		if err := decodeObject(byIP[ip], &loc); err != nil {
			return nil, fmt.Errorf("geoip.ipLocations[%s]: %w", ip, err)
		}
		rows = append(rows, GeoIPRow{
			IP:       ip,
			ASN:      display(loc.ASN),
			ISP:      display(loc.Organization),
			Location: display(loc.Location),
		})
	}
	return rows, nil
}

type tlsFacet struct {
	SupportedProtocols json.RawMessage `json:"supportedProtocols"`
	Issuer             json.RawMessage `json:"issuer"`
	ValidFrom          json.RawMessage `json:"validFrom"`
	ValidUntil         json.RawMessage `json:"validUntil"`
}

// ExtractTLS always yields exactly one row; missing fields stay empty.
func ExtractTLS(f *api.Features) (TLSRow, error) {
	if f.TLS == nil {
		return TLSRow{}, nil
	}
	var facet tlsFacet
	if err := decodeObject(f.TLS, &facet); err != nil {
		return TLSRow{}, fmt.Errorf("tls: %w", err)
	}
	return TLSRow{
		Version:    display(facet.SupportedProtocols),
		Issuer:     display(facet.Issuer),
		ValidFrom:  display(facet.ValidFrom),
		ValidUntil: display(facet.ValidUntil),
	}, nil
}

type whoisFacet struct {
	Parsed json.RawMessage `json:"parsed"`
}

type whoisParsed struct {
	Registrar      json.RawMessage `json:"registrar"`
	ExpirationDate json.RawMessage `json:"expirationDate"`
	CreationDate   json.RawMessage `json:"creationDate"`
	LastUpdated    json.RawMessage `json:"lastUpdated"`
}

// ExtractWhois always yields exactly one row from features.whois.parsed.
func ExtractWhois(f *api.Features) (WhoisRow, error) {
	if f.Whois == nil {
		return WhoisRow{}, nil
	}
	var facet whoisFacet
	if err := decodeObject(f.Whois, &facet); err != nil {
		return WhoisRow{}, fmt.Errorf("whois: %w", err)
	}
	if api.IsNull(facet.Parsed) {
		return WhoisRow{}, nil
	}
	var p whoisParsed
	if err := decodeObject(facet.Parsed, &p); err != nil {
		return WhoisRow{}, fmt.Errorf("whois.parsed: %w", err)
	}
	return WhoisRow{
		Registrar:  display(p.Registrar),
		Expires:    display(p.ExpirationDate),
		Registered: display(p.CreationDate),
		Updated:    display(p.LastUpdated),
	}, nil
}

// decodeObject is json.Unmarshal restricted to JSON objects. Plain Unmarshal
// accepts null into a struct or map without complaint.
func decodeObject(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("expected object, got %s", kind(raw))
	}
	return json.Unmarshal(raw, v)
}

func kind(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '[':
		return "array"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	case '{':
		return "object"
	}
	return "number"
}

// display renders a JSON value as a table cell. Numbers keep their literal
// form so TTLs and ASNs are not reformatted as floats.
func display(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if api.IsNull(raw) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if s := display(it); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}
