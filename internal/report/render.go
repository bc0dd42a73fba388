package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"sentinel-cli/internal/api"
)

var (
	colorTitle   = lipgloss.Color("#7D56F4")
	colorHeader  = lipgloss.Color("#00D4AA")
	colorWarning = lipgloss.Color("#FFB800")
	colorError   = lipgloss.Color("#FF3838")
	colorMuted   = lipgloss.Color("#6B7280")
)

// Renderer writes tables and raw JSON to Out and diagnostics to Err.
type Renderer struct {
	Out io.Writer
	Err io.Writer

	// Width caps table width when positive; long reasoning text wraps.
	Width int

	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	borderStyle lipgloss.Style
	noticeStyle lipgloss.Style
	warnStyle   lipgloss.Style
	errorStyle  lipgloss.Style
}

func NewRenderer(out, errOut io.Writer, color bool) *Renderer {
	outLG := lipgloss.NewRenderer(out)
	errLG := lipgloss.NewRenderer(errOut)
	if !color {
		outLG.SetColorProfile(termenv.Ascii)
		errLG.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		Out:         out,
		Err:         errOut,
		titleStyle:  outLG.NewStyle().Bold(true).Foreground(colorTitle),
		headerStyle: outLG.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1),
		cellStyle:   outLG.NewStyle().Padding(0, 1),
		borderStyle: outLG.NewStyle().Foreground(colorMuted),
		noticeStyle: outLG.NewStyle().Foreground(colorMuted).Italic(true),
		warnStyle:   errLG.NewStyle().Foreground(colorWarning),
		errorStyle:  errLG.NewStyle().Foreground(colorError).Bold(true),
	}
}

// JSON writes the body re-indented, keeping key order and number literals.
func (r *Renderer) JSON(raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indent response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := r.Out.Write(buf.Bytes())
	return err
}

// Result renders every enabled section that extracted cleanly, in fixed order.
func (r *Renderer) Result(res *Result, sel Sections) {
	for _, s := range AllSections {
		if !sel.Enabled(s) || !res.OK(s) {
			continue
		}
		switch s {
		case SectionCategories:
			if len(res.Categories) == 0 {
				continue
			}
			rows := make([][]string, len(res.Categories))
			for i, c := range res.Categories {
				rows[i] = []string{c.Name, c.Confidence, c.ConfidenceLabel, c.Reasoning}
			}
			r.table(s, []string{"Name", "Confidence", "Confidence Label", "Reasoning"}, rows)
		case SectionDNS:
			if len(res.DNS) == 0 {
				r.notice("No DNS records found.")
				continue
			}
			rows := make([][]string, len(res.DNS))
			for i, d := range res.DNS {
				rows[i] = []string{d.Type, d.Address, d.TTL}
			}
			r.table(s, []string{"Type", "Address", "TTL"}, rows)
		case SectionGeoIP:
			if len(res.GeoIP) == 0 {
				r.notice("No GeoIP data found.")
				continue
			}
			rows := make([][]string, len(res.GeoIP))
			for i, g := range res.GeoIP {
				rows[i] = []string{g.IP, g.ASN, g.ISP, g.Location}
			}
			r.table(s, []string{"IP", "ASN", "ISP", "Location"}, rows)
		case SectionTLS:
			if res.TLS == nil {
				continue
			}
			t := res.TLS
			r.table(s, []string{"Version", "Issuer", "Valid From", "Valid Until"},
				[][]string{{t.Version, t.Issuer, t.ValidFrom, t.ValidUntil}})
		case SectionWhois:
			if res.Whois == nil {
				continue
			}
			w := res.Whois
			r.table(s, []string{"Registrar", "Expires", "Registered", "Updated"},
				[][]string{{w.Registrar, w.Expires, w.Registered, w.Updated}})
		}
	}
}

func (r *Renderer) table(s Section, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.headerStyle
			}
			return r.cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	if r.Width > 0 {
		t.Width(r.Width)
	}
	fmt.Fprintf(r.Out, "\n%s\n%s\n", r.titleStyle.Render(s.Title()+":"), t.String())
}

func (r *Renderer) notice(msg string) {
	fmt.Fprintln(r.Out, r.noticeStyle.Render(msg))
}

// Warn reports a section that failed to extract.
func (r *Renderer) Warn(s Section, err error) {
	fmt.Fprintln(r.Err, r.warnStyle.Render(fmt.Sprintf("Could not parse %s: %v", s, err)))
}

// Status prints a retry loop message.
func (r *Renderer) Status(msg string) {
	fmt.Fprintln(r.Err, r.warnStyle.Render(msg))
}

// Error reports a failed lookup. API errors include the status code and the
// response body.
func (r *Renderer) Error(domain string, err error) {
	fmt.Fprintln(r.Err, r.errorStyle.Render(fmt.Sprintf("Error looking up %s: %v", domain, err)))
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.Body != "" {
		fmt.Fprintln(r.Err, httpErr.Body)
	}
}
