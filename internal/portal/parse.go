package portal

import (
	"regexp"
	"strings"

	"indexcli/internal/extract"
	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

var (
	tabRuns   = regexp.MustCompile(`\t+`)
	spaceRuns = regexp.MustCompile(`\s{2,}`)
)

// splitRowText splits a result-row's text into tokens by tab runs. Some
// portal revisions render cells with plain spacing instead of tabs, so
// when the tab split yields fewer than the expected token count the split
// falls back to multi-space runs.
func splitRowText(text string, want int) []string {
	tokens := splitAndTrim(tabRuns, text)
	if len(tokens) < want {
		tokens = splitAndTrim(spaceRuns, text)
	}
	return tokens
}

func splitAndTrim(re *regexp.Regexp, text string) []string {
	var out []string
	for _, tok := range re.Split(strings.TrimSpace(text), -1) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// leadingLabel returns the first token of a row's text, the period label
// the portal renders at the start of every result row. It asks for two
// tokens so that a space-delimited row still falls back to the
// multi-space split instead of returning the whole row as one token.
func leadingLabel(text string) string {
	tokens := splitRowText(text, 2)
	if len(tokens) == 0 {
		return ""
	}
	return strings.ToLower(tokens[0])
}

// parseResultRows locates the row whose leading label matches the
// period's portal token and maps its remaining tokens positionally into
// the canonical record shape for the family. When the target row is
// absent, every visible period label is collected for diagnostics.
func parseResultRows(rows []string, spec family.Spec, p domain.Period, r domain.RegionCode) (*domain.CanonicalRecord, error) {
	label := p.PortalLabel()
	var visible []string

	for _, text := range rows {
		got := leadingLabel(text)
		if got == "" {
			continue
		}
		visible = append(visible, got)
		if got != label {
			continue
		}

		// Label plus the family's value tokens.
		tokens := splitRowText(text, spec.PortalTokenCount+1)
		if len(tokens) < spec.PortalTokenCount+1 {
			return nil, &RowNotFoundError{Label: label, Visible: []string{got + " (short row)"}}
		}

		values := tokens[1 : spec.PortalTokenCount+1]
		rec := &domain.CanonicalRecord{
			Family: spec.ID,
			Period: p,
			Region: r,
			Method: domain.MethodSecondary,
		}
		rec.IndexPoints = extract.ParseDecimal(values[0])
		rec.MonthlyChange = extract.ParseDecimal(values[1])
		rec.AnnualChange = extract.ParseDecimal(values[2])
		if spec.PortalTokenCount > 3 {
			rec.YTDChange = extract.ParseDecimal(values[3])
		}
		return rec, nil
	}

	return nil, &RowNotFoundError{Label: label, Visible: visible}
}
