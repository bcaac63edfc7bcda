package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/pkg/jina"
)

// searchResultCap bounds how many results feed extraction; past the first
// handful the snippets are mostly directory spam.
const searchResultCap = 5

// SearchAdapter extracts signals from web search snippets. Snippets are
// the lowest-reliability source: third-party text with no provenance, so
// its signals only matter when stronger sources are silent.
type SearchAdapter struct {
	client jina.Client
	now    func() time.Time
}

// NewSearchAdapter wraps a Jina search client as a snippet adapter.
func NewSearchAdapter(client jina.Client) *SearchAdapter {
	return &SearchAdapter{client: client, now: time.Now}
}

func (a *SearchAdapter) Name() string { return model.SourceSearchSnippet }

func (a *SearchAdapter) Reliability() float64 {
	return ReliabilityPrior(model.SourceSearchSnippet)
}

func (a *SearchAdapter) Lookup(ctx context.Context, identity Identity, hints Hints) ([]model.CompanySignal, error) {
	query := `"` + identity.Name + `" company`
	if industry := hints["industry"]; industry != "" {
		query += " " + industry
	}

	resp, err := a.client.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "source: snippet search")
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	results := resp.Data
	if len(results) > searchResultCap {
		results = results[:searchResultCap]
	}

	var text strings.Builder
	for _, r := range results {
		text.WriteString(r.Title)
		text.WriteString(" ")
		if r.Description != "" {
			text.WriteString(r.Description)
		} else if len(r.Content) > 400 {
			text.WriteString(r.Content[:400])
		} else {
			text.WriteString(r.Content)
		}
		text.WriteString(" ")
	}
	body := text.String()

	observed := a.now()
	emit := func(field string, value any) model.CompanySignal {
		return model.CompanySignal{
			SourceID:          model.SourceSearchSnippet,
			FieldName:         field,
			Value:             value,
			ReliabilityWeight: a.Reliability(),
			ObservedAt:        observed,
		}
	}

	var signals []model.CompanySignal

	for _, re := range employeePatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil && n > 0 {
				signals = append(signals, emit(model.FieldEmployeeCount, n))
				break
			}
		}
	}

	if m := foundedPattern.FindStringSubmatch(body); m != nil {
		if year, err := strconv.ParseFloat(m[1], 64); err == nil {
			if year >= 1900 && year <= float64(observed.Year()) {
				signals = append(signals, emit(model.FieldFoundedYear, year))
			}
		}
	}

	if desc := strings.TrimSpace(results[0].Description); desc != "" {
		if len(desc) > 600 {
			desc = desc[:600]
		}
		signals = append(signals, emit(model.FieldDescription, desc))
	}

	return signals, nil
}
