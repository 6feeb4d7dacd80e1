package query

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Alterya/Globe/services"
)

// summaryTokenBudget bounds the data summary appended to the prompt so a
// large dataset cannot blow up the request.
const summaryTokenBudget = 600

const systemPrompt = `You translate an analyst's free-text instruction about a
threat-intelligence relationship graph into one JSON object. The graph links
scam domains to crypto addresses and resolved IPs.

Respond with a single JSON object and nothing else, using this schema:
{
  "include_chains": [string],        // chain tags to keep, e.g. ["btc"]
  "exclude_chains": [string],        // chain tags to drop
  "discovery_methods": [string],     // exact discovery methods to keep
  "intel_available": bool or null,
  "ip_resolved": bool or null,
  "connectivity": "high" | "low" | "",
  "search": string,                  // free-text substring filter
  "aggregate_by": "domain" | "ip" | "chain" | "",
  "hide_edges": bool,
  "insights": [string],              // short human-readable observations
  "explanation": string,             // one sentence describing the applied filters
  "confidence": number               // 0..1
}
Omit nothing; use empty arrays, empty strings, null and false for fields the
instruction does not touch.`

// RemoteStrategy asks a chat-completion model to produce a Filter
// Specification. It is an optimization, not a dependency: every failure is
// returned as an error so the interpreter can fall through to the rules.
type RemoteStrategy struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewRemoteStrategy wires the strategy to the environment-configured client.
// With no credential configured the strategy reports itself unavailable on
// every call instead of panicking at startup.
func NewRemoteStrategy() *RemoteStrategy {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	return &RemoteStrategy{
		client: services.DefaultOpenAIClient(),
		model:  model,
		logger: logger,
	}
}

func (s *RemoteStrategy) Name() string { return "model" }

// Interpret performs one chat completion and parses the structured response.
func (s *RemoteStrategy) Interpret(ctx context.Context, text string, summary DataSummary) (*Analysis, error) {
	if s.client == nil {
		return nil, errors.New("no model credential configured")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text, summary)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	analysis, err := parseModelResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	analysis.Query = text

	s.logger.WithFields(logrus.Fields{
		"model":      s.model,
		"confidence": analysis.Confidence,
	}).Debug("Model interpretation completed")

	return analysis, nil
}

// buildUserPrompt joins the instruction with a token-bounded data summary.
func buildUserPrompt(text string, summary DataSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instruction: %s\n\n", text)
	fmt.Fprintf(&b, "Dataset: %d records\n", summary.RecordCount)
	fmt.Fprintf(&b, "Chains: %s\n", strings.Join(summary.Chains, ", "))
	fmt.Fprintf(&b, "Discovery methods: %s\n", strings.Join(summary.DiscoveryMethods, ", "))
	fmt.Fprintf(&b, "Domains: %s\n", strings.Join(summary.Domains, ", "))
	return truncateToTokens(b.String(), summaryTokenBudget)
}

func truncateToTokens(text string, limit int) string {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return text
	}
	tokens := encoding.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return encoding.Decode(tokens[:limit])
}

// parseModelResponse validates the completion payload against the expected
// schema. Any violation is an error; the caller treats it as a strategy
// failure and falls back.
func parseModelResponse(content string) (*Analysis, error) {
	payload := stripCodeFences(content)
	if !gjson.Valid(payload) {
		return nil, errors.New("model response is not valid JSON")
	}

	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, errors.New("model response is not a JSON object")
	}

	explanation := root.Get("explanation")
	if explanation.Type != gjson.String {
		return nil, errors.New("model response missing explanation string")
	}

	confidence := root.Get("confidence")
	if !confidence.Exists() || confidence.Type != gjson.Number {
		return nil, errors.New("model response missing numeric confidence")
	}
	if confidence.Float() < 0 || confidence.Float() > 1 {
		return nil, errors.Errorf("confidence %v out of range", confidence.Float())
	}

	spec := NewFilterSpec()
	for _, chain := range root.Get("include_chains").Array() {
		if tag := strings.ToLower(strings.TrimSpace(chain.String())); tag != "" {
			spec.IncludeChains.Add(tag)
		}
	}
	for _, chain := range root.Get("exclude_chains").Array() {
		if tag := strings.ToLower(strings.TrimSpace(chain.String())); tag != "" {
			spec.ExcludeChains.Add(tag)
		}
	}
	for _, method := range root.Get("discovery_methods").Array() {
		if m := strings.TrimSpace(method.String()); m != "" {
			spec.DiscoveryMethods.Add(m)
		}
	}

	if v := root.Get("intel_available"); isBool(v) {
		value := v.Bool()
		spec.IntelAvailable = &value
	}
	if v := root.Get("ip_resolved"); isBool(v) {
		value := v.Bool()
		spec.IPResolved = &value
	}

	switch conn := root.Get("connectivity").String(); conn {
	case "", ConnectivityHigh, ConnectivityLow:
		spec.Connectivity = conn
	default:
		return nil, errors.Errorf("invalid connectivity %q", conn)
	}

	switch agg := root.Get("aggregate_by").String(); agg {
	case "", AggregateByDomain, AggregateByIP, AggregateByChain:
		spec.AggregateBy = agg
	default:
		return nil, errors.Errorf("invalid aggregate_by %q", agg)
	}

	spec.Search = strings.ToLower(strings.TrimSpace(root.Get("search").String()))
	spec.HideEdges = root.Get("hide_edges").Bool()

	insights := []string{}
	for _, insight := range root.Get("insights").Array() {
		if s := strings.TrimSpace(insight.String()); s != "" {
			insights = append(insights, s)
		}
	}

	return &Analysis{
		ID:          uuid.New().String(),
		Spec:        spec,
		Insights:    insights,
		Explanation: explanation.String(),
		Confidence:  confidence.Float(),
		Source:      "model",
	}, nil
}

func isBool(v gjson.Result) bool {
	return v.Type == gjson.True || v.Type == gjson.False
}

// stripCodeFences tolerates models that wrap JSON in a markdown block even
// when asked not to.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
