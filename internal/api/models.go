package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Document is a successful domain lookup. Raw holds the body exactly as the
// API sent it; Features decodes only the envelope and leaves every facet raw.
type Document struct {
	Raw []byte
}

type envelope struct {
	Body json.RawMessage `json:"body"`
}

type body struct {
	Features json.RawMessage `json:"features"`
}

// Features holds each facet undecoded so one malformed facet cannot break the others.
// A nil field means the key was absent or null.
type Features struct {
	Classification json.RawMessage `json:"classification"`
	DNS            json.RawMessage `json:"dns"`
	GeoIP          json.RawMessage `json:"geoip"`
	TLS            json.RawMessage `json:"tls"`
	Whois          json.RawMessage `json:"whois"`
}

var ErrNoFeatures = errors.New("response has no body.features object")

// Features walks body.features.
func (d *Document) Features() (*Features, error) {
	var env envelope
	if err := json.Unmarshal(d.Raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if IsNull(env.Body) {
		return nil, ErrNoFeatures
	}
	var b body
	if err := json.Unmarshal(env.Body, &b); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if IsNull(b.Features) {
		return nil, ErrNoFeatures
	}
	var f Features
	if err := json.Unmarshal(b.Features, &f); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	for _, raw := range []*json.RawMessage{&f.Classification, &f.DNS, &f.GeoIP, &f.TLS, &f.Whois} {
		if IsNull(*raw) {
			*raw = nil
		}
	}
	return &f, nil
}

// IsNull reports whether raw is missing or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// HTTPError is returned for any non-200 response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error: status %d", e.StatusCode)
}
