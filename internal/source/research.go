package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/pkg/perplexity"
)

const researchPrompt = `Research the company %q%s. Respond with a single JSON object and nothing else, using exactly these keys (null where unknown):
{"employee_count": number, "annual_revenue_usd": number, "founded_year": number, "country": string, "industry": string, "business_type": string, "government_customer": boolean, "funding_raised_usd": number}`

// researchFacts is the JSON shape the research model is asked to return.
// Pointers distinguish "unknown" from zero.
type researchFacts struct {
	EmployeeCount      *float64 `json:"employee_count"`
	AnnualRevenueUSD   *float64 `json:"annual_revenue_usd"`
	FoundedYear        *float64 `json:"founded_year"`
	Country            *string  `json:"country"`
	Industry           *string  `json:"industry"`
	BusinessType       *string  `json:"business_type"`
	GovernmentCustomer *bool    `json:"government_customer"`
	FundingRaisedUSD   *float64 `json:"funding_raised_usd"`
}

// ResearchAdapter queries a search-grounded LLM for aggregated company
// facts. It carries aggregator reliability: the model cites the open web,
// which is better than a raw snippet but weaker than verified data.
type ResearchAdapter struct {
	client perplexity.Client
	now    func() time.Time
}

// NewResearchAdapter wraps a Perplexity client as an aggregator adapter.
func NewResearchAdapter(client perplexity.Client) *ResearchAdapter {
	return &ResearchAdapter{client: client, now: time.Now}
}

func (a *ResearchAdapter) Name() string { return model.SourceAggregator }

func (a *ResearchAdapter) Reliability() float64 {
	return ReliabilityPrior(model.SourceAggregator)
}

func (a *ResearchAdapter) Lookup(ctx context.Context, identity Identity, _ Hints) ([]model.CompanySignal, error) {
	site := ""
	if identity.WebsiteURL != "" {
		site = fmt.Sprintf(" (website %s)", identity.WebsiteURL)
	}

	temp := 0.0
	maxTokens := 500
	resp, err := a.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: "You are a precise B2B company research assistant. Answer with strict JSON only."},
			{Role: "user", Content: fmt.Sprintf(researchPrompt, identity.Name, site)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "source: research lookup")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("source: research returned no choices")
	}

	zap.L().Debug("source: research completion",
		zap.String("company", identity.Name),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	facts, err := parseResearchFacts(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	observed := a.now()
	emit := func(field string, value any) model.CompanySignal {
		return model.CompanySignal{
			SourceID:          model.SourceAggregator,
			FieldName:         field,
			Value:             value,
			ReliabilityWeight: a.Reliability(),
			ObservedAt:        observed,
		}
	}

	var signals []model.CompanySignal
	if facts.EmployeeCount != nil && *facts.EmployeeCount > 0 {
		signals = append(signals, emit(model.FieldEmployeeCount, *facts.EmployeeCount))
	}
	if facts.AnnualRevenueUSD != nil && *facts.AnnualRevenueUSD > 0 {
		signals = append(signals, emit(model.FieldAnnualRevenue, *facts.AnnualRevenueUSD))
	}
	if facts.FoundedYear != nil && *facts.FoundedYear >= 1900 {
		signals = append(signals, emit(model.FieldFoundedYear, *facts.FoundedYear))
	}
	if facts.Country != nil && *facts.Country != "" {
		signals = append(signals, emit(model.FieldCountry, *facts.Country))
	}
	if facts.Industry != nil && *facts.Industry != "" {
		signals = append(signals, emit(model.FieldIndustry, *facts.Industry))
	}
	if facts.BusinessType != nil && *facts.BusinessType != "" {
		signals = append(signals, emit(model.FieldBusinessType, *facts.BusinessType))
	}
	if facts.GovernmentCustomer != nil {
		signals = append(signals, emit(model.FieldGovernmentCustomer, *facts.GovernmentCustomer))
	}
	if facts.FundingRaisedUSD != nil && *facts.FundingRaisedUSD > 0 {
		signals = append(signals, emit(model.FieldFundingRaised, *facts.FundingRaisedUSD))
	}
	return signals, nil
}

// parseResearchFacts tolerates markdown fences and prose around the JSON
// object; models wrap output despite instructions.
func parseResearchFacts(content string) (*researchFacts, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("source: research response contains no JSON object: %.120s", content)
	}

	var facts researchFacts
	if err := json.Unmarshal([]byte(content[start:end+1]), &facts); err != nil {
		return nil, eris.Wrap(err, "source: parse research facts")
	}
	return &facts, nil
}
