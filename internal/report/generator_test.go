package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-cli/internal/api"
)

const fullDoc = `{"body":{"features":{
	"classification":{"categories":[{"name":"Technology","confidence":0.91,"confidenceLabel":"high","reasoning":"vendor site"}]},
	"dns":{"records":{"A":[{"value":"93.184.216.34","ttl":300}]}},
	"geoip":{"ipLocations":{"93.184.216.34":{"asn":15133,"organization":"Edgecast"}}},
	"tls":{"supportedProtocols":["TLSv1.3"],"issuer":"DigiCert","validFrom":"2026-01-01","validUntil":"2027-01-01"},
	"whois":{"parsed":{"registrar":"IANA","expirationDate":"2027-08-13","creationDate":"1995-08-14","lastUpdated":"2026-08-14"}}
}}}`

const noClassificationDoc = `{"body":{"features":{
	"dns":{"records":{"A":[{"value":"93.184.216.34","ttl":300}]}},
	"tls":{"issuer":"DigiCert"}
}}}`

// scriptedFetcher returns one response per call, repeating the last one.
type scriptedFetcher struct {
	bodies []string
	err    error
	calls  int
}

func (f *scriptedFetcher) LookupDomain(_ context.Context, _ string) (*api.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := min(f.calls-1, len(f.bodies)-1)
	return &api.Document{Raw: []byte(f.bodies[i])}, nil
}

type harness struct {
	gen    *Generator
	out    *bytes.Buffer
	errOut *bytes.Buffer
	sleeps []time.Duration
}

func newHarness(f Fetcher) *harness {
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.gen = NewGenerator(f, NewRenderer(h.out, h.errOut, false), nil)
	h.gen.Sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func TestRun_SuccessOnFirstAttempt(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{fullDoc}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 3, RetryDelay: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, h.sleeps)
	assert.Empty(t, h.errOut.String())

	for _, title := range []string{"Domain Categories:", "DNS Records:", "GeoIP Snapshot:", "TLS Results:", "WHOIS Data:"} {
		assert.Contains(t, h.out.String(), title)
	}
}

func TestRun_RetriesUntilClassificationAppears(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{noClassificationDoc, noClassificationDoc, fullDoc}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 3, RetryDelay: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeps)
	assert.Contains(t, h.errOut.String(), "Attempt 1/3")
	assert.Contains(t, h.errOut.String(), "Attempt 2/3")
	assert.Contains(t, h.errOut.String(), "Could not parse categories")

	// Only the final attempt is rendered.
	assert.Equal(t, 1, strings.Count(h.out.String(), "DNS Records:"))
	assert.Contains(t, h.out.String(), "Technology")
}

func TestRun_ExhaustedRetriesStillRendersSuccessfulSections(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{noClassificationDoc}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 2, RetryDelay: time.Second})
	require.NoError(t, err)

	assert.Equal(t, StateExhaustedRetries, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []Section{SectionCategories}, out.Failed)
	assert.Len(t, h.sleeps, 1)
	assert.Contains(t, h.errOut.String(), "Could not load: categories after 2 attempts.")

	assert.NotContains(t, h.out.String(), "Domain Categories:")
	assert.Equal(t, 1, strings.Count(h.out.String(), "DNS Records:"))
	assert.Contains(t, h.out.String(), "TLS Results:")
	assert.Contains(t, h.out.String(), "No GeoIP data found.")
}

func TestRun_MalformedDNSDoesNotBlockOtherSections(t *testing.T) {
	doc := `{"body":{"features":{
		"classification":{"categories":[]},
		"dns":{"records":"oops"},
		"whois":{"parsed":{"registrar":"IANA"}}
	}}}`
	h := newHarness(&scriptedFetcher{bodies: []string{doc}})

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 1})
	require.NoError(t, err)

	assert.Equal(t, StateExhaustedRetries, out.State)
	assert.Equal(t, []Section{SectionDNS}, out.Failed)
	assert.Contains(t, h.errOut.String(), "Could not parse DNS records")
	assert.NotContains(t, h.out.String(), "DNS Records:")
	assert.Contains(t, h.out.String(), "WHOIS Data:")
	assert.Contains(t, h.out.String(), "IANA")
	// zero categories render nothing and are not a failure
	assert.NotContains(t, h.out.String(), "Domain Categories:")
	assert.NotContains(t, h.errOut.String(), "categories")
}

func TestRun_OnlyTLS(t *testing.T) {
	h := newHarness(&scriptedFetcher{bodies: []string{fullDoc}})

	_, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Sections: Sections{TLS: true}, Retries: 3})
	require.NoError(t, err)

	titles := 0
	for _, s := range AllSections {
		titles += strings.Count(h.out.String(), s.Title()+":")
	}
	assert.Equal(t, 1, titles)
	assert.Contains(t, h.out.String(), "TLS Results:")
	assert.Contains(t, h.out.String(), "DigiCert")
}

func TestRun_DisabledSectionsAreNotRetried(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{noClassificationDoc}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Sections: Sections{DNS: true, TLS: true}, Retries: 3})
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, h.sleeps)
}

func TestRun_JSONModeSkipsExtraction(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{`{"body":{"features":{"dns":{"records":"oops"}}},"n":1.50}`}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{
		Domain:   "example.com",
		Mode:     ModeJSON,
		Sections: Sections{DNS: true},
		Retries:  3,
	})
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, f.calls)
	want := "{\n  \"body\": {\n    \"features\": {\n      \"dns\": {\n        \"records\": \"oops\"\n      }\n    }\n  },\n  \"n\": 1.50\n}\n"
	assert.Equal(t, want, h.out.String())
	assert.Empty(t, h.errOut.String())
}

func TestRun_TransportFailureIsNotRetried(t *testing.T) {
	f := &scriptedFetcher{err: &api.HTTPError{StatusCode: 503, Body: "unavailable"}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 3})
	require.Error(t, err)

	var httpErr *api.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 503, httpErr.StatusCode)
	assert.Equal(t, StateAborted, out.State)
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, h.sleeps)
	assert.Empty(t, h.out.String())
}

func TestRun_CancelledDuringDelay(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{noClassificationDoc}}
	h := newHarness(f)
	h.gen.Sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.gen.Run(ctx, Request{Domain: "example.com", Retries: 3, RetryDelay: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePartialFailure, out.State)
	assert.Equal(t, 1, f.calls)
}

func TestRun_RetriesBelowOneMeansSingleAttempt(t *testing.T) {
	f := &scriptedFetcher{bodies: []string{noClassificationDoc}}
	h := newHarness(f)

	out, err := h.gen.Run(context.Background(), Request{Domain: "example.com", Retries: 0})
	require.NoError(t, err)
	assert.Equal(t, StateExhaustedRetries, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, h.sleeps)
}
