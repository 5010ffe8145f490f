package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/llm"
)

type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	last    llm.Request
}

func (s *scriptedLLM) Chat(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
	i := s.calls
	s.calls++
	s.last = req
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	reply := s.replies[len(s.replies)-1]
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	if err := llm.Decode(reply, result); err != nil {
		return nil, err
	}
	return &llm.Response{}, nil
}

func (s *scriptedLLM) Model() string { return "scripted" }

func TestRuleClassifierTiers(t *testing.T) {
	c := NewRuleUrgencyClassifier()
	cases := []struct {
		category    models.Category
		description string
		want        models.Urgency
	}{
		{models.CategoryLift, "Elevator stuck with person trapped between 2nd and 3rd floor", models.UrgencyCritical},
		{models.CategoryLift, "The main elevator got stuck between floors.", models.UrgencyCritical},
		{models.CategoryElectrical, "I saw sparks from the power outlet near my bed.", models.UrgencyCritical},
		{models.CategoryElectrical, "Main room light is flickering. Possible short circuit.", models.UrgencyHigh},
		{models.CategoryWater, "No water in the whole block since morning", models.UrgencyHigh},
		{models.CategoryPlumbing, "Leaky faucet in the bathroom, dripping constantly.", models.UrgencyMedium},
		{models.CategoryFurnitureDoor, "The desk chair has a broken wheel.", models.UrgencyLow},
		{models.CategoryAC, "AC is not cooling effectively.", models.UrgencyLow},
		{models.CategoryElectrical, "The fire exit sign bulb is fused", models.UrgencyHigh},
		{models.CategoryElectrical, "Smoke detector battery beeping", models.UrgencyHigh},
		{models.CategoryWater, "Gas geyser knob loose", models.UrgencyMedium},
		{models.CategoryFurnitureDoor, "Fire extinguisher bracket came off the wall", models.UrgencyLow},
		{models.CategoryElectrical, "Smoke detector going off and smoke coming from the switchboard", models.UrgencyCritical},
		{models.CategoryWater, "Strong smell of gas near the geyser", models.UrgencyCritical},
		{models.CategoryWater, "Gas leaking from the geyser pipe", models.UrgencyCritical},
	}
	for _, tc := range cases {
		got, err := c.Classify(context.Background(), tc.category, tc.description)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Urgency, tc.description)
		assert.NotEmpty(t, got.Reason)
	}
}

func TestRuleClassifierHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRuleUrgencyClassifier().Classify(ctx, models.CategoryLift, "stuck")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLLMClassifierParsesVerdict(t *testing.T) {
	client := &scriptedLLM{replies: []string{`{"urgency":"Critical","reason":"Person trapped."}`}}
	c := NewLLMUrgencyClassifier(client)

	got, err := c.Classify(context.Background(), models.CategoryLift, "Elevator stuck with person trapped")
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyCritical, got.Urgency)
	assert.Equal(t, "Person trapped.", got.Reason)
	assert.Contains(t, client.last.UserPrompt, "Category: Lift")
	assert.Equal(t, "urgency_assessment", client.last.SchemaName)
}

func TestLLMClassifierRetriesTransientErrors(t *testing.T) {
	client := &scriptedLLM{
		errs:    []error{errors.New("connection reset")},
		replies: []string{`{"urgency":"low","reason":"Routine."}`},
	}
	got, err := NewLLMUrgencyClassifier(client).Classify(context.Background(), models.CategoryAC, "Filter needs cleaning")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, models.UrgencyLow, got.Urgency)
}

func TestLLMClassifierRejectsUnknownTier(t *testing.T) {
	client := &scriptedLLM{replies: []string{`{"urgency":"severe","reason":"?"}`}}
	_, err := NewLLMUrgencyClassifier(client).Classify(context.Background(), models.CategoryAC, "Filter needs cleaning")
	assert.Error(t, err)
}

type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, _ models.Category, _ string) (models.UrgencyAssessment, error) {
	<-ctx.Done()
	return models.UrgencyAssessment{}, ctx.Err()
}

func TestObservedClassifierTimesOutAndCounts(t *testing.T) {
	metrics := NewMetricsService()
	c := NewObservedUrgencyClassifier(slowClassifier{}, "slow", 10*time.Millisecond, metrics, nil)

	_, err := c.Classify(context.Background(), models.CategoryLift, "stuck")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrClassification)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.OracleCalls)
	assert.Equal(t, uint64(1), snap.OracleFailures)
}

func TestObservedClassifierPassesThrough(t *testing.T) {
	metrics := NewMetricsService()
	c := NewObservedUrgencyClassifier(NewRuleUrgencyClassifier(), "rules", time.Second, metrics, nil)

	got, err := c.Classify(context.Background(), models.CategoryPlumbing, "Pipe burst under the sink")
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyHigh, got.Urgency)
	assert.Equal(t, uint64(0), metrics.Snapshot().OracleFailures)
}
