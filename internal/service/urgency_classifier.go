package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/llm"
	"github.com/noah-isme/dormfix-api/pkg/telemetry"
)

// UrgencyClassifier assigns an urgency tier to a request description.
type UrgencyClassifier interface {
	Classify(ctx context.Context, category models.Category, description string) (models.UrgencyAssessment, error)
}

var criticalPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`\b(trapped|stuck with (a )?person|person (is )?stuck|someone (is )?stuck)\b`), "person trapped"},
	{regexp.MustCompile(`\b(fire|burning|smoke|smoking)\b`), "fire or smoke"},
	{regexp.MustCompile(`\bsparks?(ing)?\b`), "sparking"},
	{regexp.MustCompile(`\b(shock(s|ed|ing)?|electrocut\w*)\b`), "electric shock risk"},
	{regexp.MustCompile(`\b(exposed|bare|naked) wir(e|es|ing)\b`), "exposed wiring"},
	{regexp.MustCompile(`\bgas (leak\w*|smell\w*)|\b(smell\w* of|leak\w*) gas\b`), "gas leak"},
	{regexp.MustCompile(`\bflood(s|ed|ing)?\b`), "flooding"},
}

// safetyEquipment names fixtures whose wording would otherwise read as a hazard.
// Matches are blanked before the critical patterns run.
var safetyEquipment = regexp.MustCompile(`\b(fire (exit|extinguisher|alarm|door|escape|hose)s?|(smoke|fire) (detector|alarm|sensor)s?)\b`)

var liftStuck = regexp.MustCompile(`\b(stuck|stopped) between floors\b`)

var highPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bshort circuit\b`),
	regexp.MustCompile(`\bno (power|electricity|water)\b`),
	regexp.MustCompile(`\bburst\b`),
	regexp.MustCompile(`\boverflow(s|ing)?\b`),
}

// RuleUrgencyClassifier is a deterministic keyword classifier. It flags
// safety-critical language first and otherwise falls back to a per-category tier.
type RuleUrgencyClassifier struct{}

func NewRuleUrgencyClassifier() *RuleUrgencyClassifier {
	return &RuleUrgencyClassifier{}
}

func (c *RuleUrgencyClassifier) Classify(ctx context.Context, category models.Category, description string) (models.UrgencyAssessment, error) {
	if err := ctx.Err(); err != nil {
		return models.UrgencyAssessment{}, err
	}
	text := strings.ToLower(description)
	hazardText := safetyEquipment.ReplaceAllString(text, " ")
	for _, p := range criticalPatterns {
		if p.re.MatchString(hazardText) {
			return models.UrgencyAssessment{Urgency: models.UrgencyCritical, Reason: "Safety-critical: " + p.reason + "."}, nil
		}
	}
	if category == models.CategoryLift && liftStuck.MatchString(text) {
		return models.UrgencyAssessment{Urgency: models.UrgencyCritical, Reason: "Safety-critical: lift stuck between floors."}, nil
	}
	for _, re := range highPatterns {
		if re.MatchString(text) {
			return models.UrgencyAssessment{Urgency: models.UrgencyHigh, Reason: "Service outage or escalating damage."}, nil
		}
	}
	switch category {
	case models.CategoryLift, models.CategoryElectrical:
		return models.UrgencyAssessment{Urgency: models.UrgencyHigh, Reason: fmt.Sprintf("%s faults can become hazardous.", category)}, nil
	case models.CategoryWater, models.CategoryPlumbing:
		return models.UrgencyAssessment{Urgency: models.UrgencyMedium, Reason: "Water or plumbing issue affecting daily use."}, nil
	default:
		return models.UrgencyAssessment{Urgency: models.UrgencyLow, Reason: "Routine maintenance."}, nil
	}
}

const urgencySystemPrompt = `You triage hostel maintenance requests.
Classify the urgency of the request as one of: low, medium, high, critical.
Prioritize safety-critical issues such as lift malfunctions trapping a person or electrical hazards.
Give a one-sentence reason.`

type urgencyVerdict struct {
	Urgency string `json:"urgency" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Reason  string `json:"reason"`
}

// LLMUrgencyClassifier asks a language model for the urgency tier.
type LLMUrgencyClassifier struct {
	client   llm.Client
	attempts int
	schema   any
}

func NewLLMUrgencyClassifier(client llm.Client) *LLMUrgencyClassifier {
	return &LLMUrgencyClassifier{client: client, attempts: 2, schema: llm.GenerateSchema[urgencyVerdict]()}
}

func (c *LLMUrgencyClassifier) Classify(ctx context.Context, category models.Category, description string) (models.UrgencyAssessment, error) {
	req := llm.Request{
		SystemPrompt: urgencySystemPrompt,
		UserPrompt:   fmt.Sprintf("Category: %s\nDescription: %s", category, description),
		SchemaName:   "urgency_assessment",
		Schema:       c.schema,
		MaxTokens:    200,
		Temperature:  llm.Temp(0),
	}

	var verdict urgencyVerdict
	var err error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if _, err = c.client.Chat(ctx, req, &verdict); err == nil || !llm.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		return models.UrgencyAssessment{}, err
	}

	urgency := models.Urgency(strings.ToLower(strings.TrimSpace(verdict.Urgency)))
	if !urgency.Valid() {
		return models.UrgencyAssessment{}, fmt.Errorf("oracle returned unknown urgency %q", verdict.Urgency)
	}
	return models.UrgencyAssessment{Urgency: urgency, Reason: verdict.Reason}, nil
}

// ObservedUrgencyClassifier bounds each call with a timeout, records metrics
// and a span, and maps every failure to ErrClassification.
type ObservedUrgencyClassifier struct {
	inner   UrgencyClassifier
	name    string
	timeout time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

func NewObservedUrgencyClassifier(inner UrgencyClassifier, name string, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *ObservedUrgencyClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservedUrgencyClassifier{inner: inner, name: name, timeout: timeout, metrics: metrics, logger: logger}
}

func (c *ObservedUrgencyClassifier) Classify(ctx context.Context, category models.Category, description string) (models.UrgencyAssessment, error) {
	ctx, span := telemetry.StartSpan(ctx, "oracle.classify",
		attribute.String("oracle.impl", c.name),
		attribute.String("request.category", string(category)),
	)
	defer span.End()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.inner.Classify(ctx, category, description)
	if err == nil && !result.Urgency.Valid() {
		err = fmt.Errorf("classifier returned unknown urgency %q", result.Urgency)
	}
	if err != nil {
		c.metrics.ObserveOracle("classifier", OracleOutcomeError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		c.logger.Warn("urgency classification failed", zap.String("oracle", c.name), zap.Error(err))
		return models.UrgencyAssessment{}, appErrors.Wrap(err, appErrors.ErrClassification.Code, appErrors.ErrClassification.Status, appErrors.ErrClassification.Message)
	}
	c.metrics.ObserveOracle("classifier", OracleOutcomeOK, time.Since(start))
	span.SetAttributes(attribute.String("oracle.urgency", string(result.Urgency)))
	return result, nil
}
