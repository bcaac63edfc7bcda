package source

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// Extraction patterns for facts companies state in their own site copy.
var (
	employeePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*\+?\s*employees`),
		regexp.MustCompile(`(?i)team\s+of\s+(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*\+?\s*people`),
		regexp.MustCompile(`(?i)staff\s+of\s+(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*[- ]person\s+team`),
	}
	revenueMillionsPattern = regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*(?:million|m)\b.{0,40}?(?:revenue|sales)`)
	revenueDollarsPattern  = regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})+)\s*(?:in\s+)?(?:revenue|sales)`)
	foundedPattern         = regexp.MustCompile(`(?i)(?:founded|established|since)\s*(?:in\s*)?(\d{4})`)
	annualPricePattern     = regexp.MustCompile(`(?i)\$(\d{1,3}(?:,\d{3})*)\s*(?:per\s+year|/\s*year|annually|per\s+annum)`)
)

var governmentKeywords = []string{
	"government", "public sector", "federal", "municipal", "state agencies",
}

// WebsiteAdapter extracts signals from the company's own website. It is the
// highest-reliability source since companies rarely understate themselves
// on hard facts like founding year and headcount.
type WebsiteAdapter struct {
	provider ContentProvider
	now      func() time.Time
}

// NewWebsiteAdapter wraps a content provider as an official-site adapter.
func NewWebsiteAdapter(provider ContentProvider) *WebsiteAdapter {
	return &WebsiteAdapter{provider: provider, now: time.Now}
}

func (a *WebsiteAdapter) Name() string { return model.SourceOfficialSite }

func (a *WebsiteAdapter) Reliability() float64 {
	return ReliabilityPrior(model.SourceOfficialSite)
}

// Lookup fetches the about and pricing scopes and extracts whatever facts
// the copy states. A failed scope drops its signals without failing the
// lookup; only a fully failed fetch is an error.
func (a *WebsiteAdapter) Lookup(ctx context.Context, identity Identity, _ Hints) ([]model.CompanySignal, error) {
	if identity.WebsiteURL == "" {
		return nil, nil
	}

	var pages []PageContent
	var fetchErrs []error
	for _, scope := range []string{"about", "pricing"} {
		scoped, err := a.provider.Fetch(ctx, identity.WebsiteURL, scope)
		if err != nil {
			fetchErrs = append(fetchErrs, err)
			zap.L().Warn("source: website scope fetch failed",
				zap.String("url", identity.WebsiteURL),
				zap.String("scope", scope),
				zap.Error(err),
			)
			continue
		}
		pages = append(pages, scoped...)
	}
	if len(pages) == 0 {
		if len(fetchErrs) > 0 {
			return nil, eris.Wrap(fetchErrs[0], "source: website fetch")
		}
		return nil, nil
	}

	return a.extract(pages), nil
}

func (a *WebsiteAdapter) extract(pages []PageContent) []model.CompanySignal {
	var text strings.Builder
	for _, p := range pages {
		text.WriteString(p.Title)
		text.WriteString(" ")
		text.WriteString(p.Text)
		text.WriteString(" ")
	}
	body := text.String()

	observed := a.now()
	emit := func(field string, value any) model.CompanySignal {
		return model.CompanySignal{
			SourceID:          model.SourceOfficialSite,
			FieldName:         field,
			Value:             value,
			ReliabilityWeight: a.Reliability(),
			ObservedAt:        observed,
		}
	}

	var signals []model.CompanySignal

	if desc := firstParagraph(pages); desc != "" {
		signals = append(signals, emit(model.FieldDescription, desc))
	}

	for _, re := range employeePatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil && n > 0 {
				signals = append(signals, emit(model.FieldEmployeeCount, n))
				break
			}
		}
	}

	if m := revenueMillionsPattern.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			signals = append(signals, emit(model.FieldAnnualRevenue, v*1_000_000))
		}
	} else if m := revenueDollarsPattern.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			signals = append(signals, emit(model.FieldAnnualRevenue, v))
		}
	}

	if m := foundedPattern.FindStringSubmatch(body); m != nil {
		if year, err := strconv.ParseFloat(m[1], 64); err == nil {
			if year >= 1900 && year <= float64(observed.Year()) {
				signals = append(signals, emit(model.FieldFoundedYear, year))
			}
		}
	}

	if m := annualPricePattern.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			signals = append(signals, emit(model.FieldAnnualPrice, v))
		}
	}

	lower := strings.ToLower(body)
	for _, kw := range governmentKeywords {
		if strings.Contains(lower, kw) {
			signals = append(signals, emit(model.FieldGovernmentCustomer, true))
			break
		}
	}

	return signals
}

// firstParagraph returns the leading text of the first page with content,
// capped so fusion and prompts stay bounded.
func firstParagraph(pages []PageContent) string {
	for _, p := range pages {
		t := strings.TrimSpace(p.Text)
		if t == "" {
			continue
		}
		if len(t) > 600 {
			t = t[:600]
		}
		return t
	}
	return ""
}
