// Package semantic reviews the wording of entries for classification
// problems that keyword rules cannot see. An LLM is used when an API key
// is configured, otherwise a small set of local rules.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Reviews counts semantic reviews by outcome.
var Reviews = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "semantic_reviews_total",
		Help: "How many semantic reviews have been made, partitioned by advisor and outcome.",
	},
	[]string{"advisor", "outcome"},
)

var ErrNoVerdict = errors.New("the response does not contain a verdict")

const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

// Verdict is the result of a semantic review.
type Verdict struct {
	IsCompliant   bool    `json:"isCompliant" example:"false"`
	RiskLevel     string  `json:"riskLevel" example:"high"`
	LegalCitation *string `json:"legalCitation" example:"Art. 4 ust. 1 Ustawy o rachunkowości"`
	Reasoning     string  `json:"reasoning"`
	Suggestion    *string `json:"suggestion" example:"Change the paragraph to 6050."`
}

// Advisor reviews a single entry.
type Advisor interface {
	Name() string
	Review(ctx context.Context, e models.Entry) (Verdict, error)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RuleAdvisor reviews entries with the semantic rules of the rule set.
type RuleAdvisor struct {
	rules []rules.SemanticRule
}

func NewRuleAdvisor(r rules.Rules) *RuleAdvisor {
	return &RuleAdvisor{rules: r.Semantic}
}

func (a *RuleAdvisor) Name() string {
	return "rules"
}

// Review returns the verdict of the first rule that matches the entry.
// Rules match on the paragraph, a keyword in name or description and a
// first year amount above the minimum of the rule.
func (a *RuleAdvisor) Review(_ context.Context, e models.Entry) (Verdict, error) {
	content := rules.Content(e.Name, e.Description)
	amount := e.For(models.FirstYear)

	for _, r := range a.rules {
		if e.Paragraph != r.Paragraph || !rules.ContainsAny(content, r.Keywords) {
			continue
		}

		if r.MinAmount > 0 && !amount.GreaterThan(decimal.NewFromFloat(r.MinAmount)) {
			continue
		}

		return Verdict{
			IsCompliant:   false,
			RiskLevel:     r.RiskLevel,
			LegalCitation: optional(r.LegalCitation),
			Reasoning:     r.Reasoning,
			Suggestion:    optional(r.Suggestion),
		}, nil
	}

	return Verdict{
		IsCompliant: true,
		RiskLevel:   RiskLow,
		Reasoning:   "The entry looks correct (rule-based review). Configure an API key for a full analysis.",
	}, nil
}

// AnthropicAdvisor asks an Anthropic model to review the entry.
type AnthropicAdvisor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    string
}

// NewAnthropicAdvisor creates an advisor for the model. Additional request
// options are passed to the client.
func NewAnthropicAdvisor(r rules.Rules, apiKey, model string, maxTokens int64, opts ...option.RequestOption) *AnthropicAdvisor {
	return &AnthropicAdvisor{
		client:    anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:     model,
		maxTokens: maxTokens,
		system:    SystemPrompt(r),
	}
}

func (a *AnthropicAdvisor) Name() string {
	return "anthropic"
}

// SystemPrompt describes the classification rules and the expected
// answer to the model.
func SystemPrompt(r rules.Rules) string {
	var b strings.Builder

	b.WriteString("You are the chief accountant auditing the budget plan of the Ministry of Digital Affairs (Ministerstwo Cyfryzacji). ")
	b.WriteString("Verify that each budget entry complies with the budget classification regulation of the Minister of Finance.\n\n")

	b.WriteString("Classification rules (paragraph: name, group):\n")
	codes := maps.Keys(r.Classification)
	slices.Sort(codes)
	for _, code := range codes {
		p := r.Classification[code]
		fmt.Fprintf(&b, "- %d: %s, %s\n", code, p.Name, p.Group)
	}

	b.WriteString("\nLook for:\n")
	b.WriteString("1. Wrong classification, e.g. buying a server from paragraph 4300.\n")
	b.WriteString("2. Vague justifications.\n")
	b.WriteString("3. Hidden costs, e.g. a license without its deployment.\n")
	b.WriteString("4. Purchases split up to avoid a tender or an investment classification.\n\n")

	b.WriteString("Be strict but fair. Answer with a single JSON object and nothing else:\n")
	b.WriteString(`{"is_compliant": boolean, "risk_level": "low"|"medium"|"high", "legal_citation": string|null, "reasoning": string, "suggestion": string|null}`)

	return b.String()
}

// Context describes the entry for the model.
func Context(e models.Entry) string {
	return strings.Join([]string{
		"Budget entry under review:",
		fmt.Sprintf("Name: %s", e.Name),
		fmt.Sprintf("Description: %s", e.Description),
		fmt.Sprintf("Justification: %s", e.Justification),
		fmt.Sprintf("Amount %d: %s thousand PLN", models.FirstYear, e.For(models.FirstYear).String()),
		fmt.Sprintf("Paragraph: %d", e.Paragraph),
		fmt.Sprintf("Department: %s", e.DepartmentCode()),
	}, "\n")
}

type answer struct {
	IsCompliant   bool    `json:"is_compliant"`
	RiskLevel     string  `json:"risk_level"`
	LegalCitation *string `json:"legal_citation"`
	Reasoning     string  `json:"reasoning"`
	Suggestion    *string `json:"suggestion"`
}

// ParseVerdict reads the verdict from the text of the answer. Text around
// the JSON object, like a markdown code fence, is ignored.
func ParseVerdict(text string) (Verdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Verdict{}, ErrNoVerdict
	}

	var a answer
	err := json.Unmarshal([]byte(text[start:end+1]), &a)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrNoVerdict, err)
	}

	return Verdict{
		IsCompliant:   a.IsCompliant,
		RiskLevel:     a.RiskLevel,
		LegalCitation: a.LegalCitation,
		Reasoning:     a.Reasoning,
		Suggestion:    a.Suggestion,
	}, nil
}

func (a *AnthropicAdvisor) Review(ctx context.Context, e models.Entry) (Verdict, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: a.system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Context(e))),
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("anthropic API error: %w", err)
	}

	log.Debug().
		Str("entry", e.ID.String()).
		Int64("tokens_in", message.Usage.InputTokens).
		Int64("tokens_out", message.Usage.OutputTokens).
		Msg("semantic review")

	for _, block := range message.Content {
		if block.Type == "text" {
			return ParseVerdict(block.Text)
		}
	}

	return Verdict{}, ErrNoVerdict
}

// Checker runs the semantic review. Failures of the advisor never reach
// the caller, they result in a compliant verdict with unknown risk.
type Checker struct {
	advisor Advisor
}

func NewChecker(a Advisor) *Checker {
	return &Checker{advisor: a}
}

// FromConfig uses the Anthropic advisor if an API key is set, the rule
// advisor otherwise.
func FromConfig(r rules.Rules, apiKey, model string, maxTokens int64) *Checker {
	if apiKey == "" {
		return NewChecker(NewRuleAdvisor(r))
	}
	return NewChecker(NewAnthropicAdvisor(r, apiKey, model, maxTokens))
}

// Advisor returns the name of the advisor in use.
func (c *Checker) Advisor() string {
	return c.advisor.Name()
}

func (c *Checker) Review(ctx context.Context, e models.Entry) Verdict {
	v, err := c.advisor.Review(ctx, e)
	if err != nil {
		log.Error().Err(err).Str("entry", e.ID.String()).Str("advisor", c.advisor.Name()).Msg("semantic review failed")
		Reviews.WithLabelValues(c.advisor.Name(), "error").Inc()

		return Verdict{
			IsCompliant: true,
			RiskLevel:   RiskUnknown,
			Reasoning:   fmt.Sprintf("AI analysis error: %s. Validation skipped.", err),
		}
	}

	outcome := "compliant"
	if !v.IsCompliant {
		outcome = "non_compliant"
	}
	Reviews.WithLabelValues(c.advisor.Name(), outcome).Inc()

	return v
}

// ReviewEntry loads the entry and reviews it.
func (c *Checker) ReviewEntry(ctx context.Context, db *gorm.DB, id uuid.UUID) (Verdict, error) {
	var e models.Entry
	err := db.Preload("Department").First(&e, id).Error
	if err != nil {
		return Verdict{}, err
	}

	return c.Review(ctx, e), nil
}
