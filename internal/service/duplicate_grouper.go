package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/llm"
	"github.com/noah-isme/dormfix-api/pkg/telemetry"
)

// DuplicateGrouper returns groups of indices into summaries that describe the same issue.
type DuplicateGrouper interface {
	FindDuplicateGroups(ctx context.Context, summaries []models.RequestSummary) ([][]int, error)
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "in": {}, "on": {}, "at": {}, "of": {}, "to": {}, "is": {}, "it": {},
	"my": {}, "our": {}, "me": {}, "i": {}, "we": {}, "for": {}, "with": {}, "from": {}, "this": {}, "that": {},
	"has": {}, "have": {}, "been": {}, "be": {}, "was": {}, "are": {}, "not": {}, "very": {}, "again": {}, "room": {},
	"near": {}, "there": {}, "since": {}, "some": {}, "any": {}, "all": {}, "also": {}, "please": {},
}

// RuleDuplicateGrouper groups requests for the same room and category whose
// descriptions share most of their significant words.
type RuleDuplicateGrouper struct {
	threshold float64
}

func NewRuleDuplicateGrouper() *RuleDuplicateGrouper {
	return &RuleDuplicateGrouper{threshold: 0.5}
}

func (g *RuleDuplicateGrouper) FindDuplicateGroups(ctx context.Context, summaries []models.RequestSummary) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(summaries)
	tokens := make([]map[string]struct{}, n)
	for i, s := range summaries {
		tokens[i] = tokenize(s.Description)
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !sameRoom(summaries[i], summaries[j]) || summaries[i].Category != summaries[j].Category {
				continue
			}
			if overlap(tokens[i], tokens[j]) >= g.threshold {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[rj] = ri
				}
			}
		}
	}

	buckets := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		buckets[root] = append(buckets[root], i)
	}
	groups := make([][]int, 0)
	for _, members := range buckets {
		if len(members) > 1 {
			groups = append(groups, members)
		}
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
	return groups, nil
}

func sameRoom(a, b models.RequestSummary) bool {
	return strings.EqualFold(strings.TrimSpace(a.RoomNumber), strings.TrimSpace(b.RoomNumber))
}

func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stopwords[w]; skip || len(w) < 3 {
			continue
		}
		out[stem(w)] = struct{}{}
	}
	return out
}

func stem(w string) string {
	if len(w) <= 4 {
		return w
	}
	for _, suffix := range []string{"ing", "ed", "y", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 4 {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}

// overlap is the Szymkiewicz-Simpson coefficient |A∩B| / min(|A|,|B|).
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

const grouperSystemPrompt = `You review hostel maintenance requests for duplicates.
Two requests are duplicates when they come from the same room and describe similar issues.
Return groups of zero-based indices into the input list. Only include groups with two or more members.
Return an empty list when there are no duplicates.`

type duplicateVerdict struct {
	DuplicateGroups [][]int `json:"duplicateGroups"`
}

// LLMDuplicateGrouper asks a language model for duplicate groups.
type LLMDuplicateGrouper struct {
	client llm.Client
	schema any
}

func NewLLMDuplicateGrouper(client llm.Client) *LLMDuplicateGrouper {
	return &LLMDuplicateGrouper{client: client, schema: llm.GenerateSchema[duplicateVerdict]()}
}

func (g *LLMDuplicateGrouper) FindDuplicateGroups(ctx context.Context, summaries []models.RequestSummary) ([][]int, error) {
	if len(summaries) < 2 {
		return [][]int{}, nil
	}
	payload, err := json.Marshal(map[string]any{"requests": summaries})
	if err != nil {
		return nil, fmt.Errorf("marshal summaries: %w", err)
	}
	var verdict duplicateVerdict
	_, err = g.client.Chat(ctx, llm.Request{
		SystemPrompt: grouperSystemPrompt,
		UserPrompt:   string(payload),
		SchemaName:   "duplicate_groups",
		Schema:       g.schema,
		MaxTokens:    800,
		Temperature:  llm.Temp(0),
	}, &verdict)
	if err != nil {
		return nil, err
	}
	if verdict.DuplicateGroups == nil {
		return [][]int{}, nil
	}
	return verdict.DuplicateGroups, nil
}

// ObservedDuplicateGrouper adds timeout, metrics and tracing, and maps
// failures to ErrGrouping.
type ObservedDuplicateGrouper struct {
	inner   DuplicateGrouper
	name    string
	timeout time.Duration
	metrics *MetricsService
}

func NewObservedDuplicateGrouper(inner DuplicateGrouper, name string, timeout time.Duration, metrics *MetricsService) *ObservedDuplicateGrouper {
	return &ObservedDuplicateGrouper{inner: inner, name: name, timeout: timeout, metrics: metrics}
}

func (g *ObservedDuplicateGrouper) FindDuplicateGroups(ctx context.Context, summaries []models.RequestSummary) ([][]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "oracle.group_duplicates",
		attribute.String("oracle.impl", g.name),
		attribute.Int("oracle.items", len(summaries)),
	)
	defer span.End()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	groups, err := g.inner.FindDuplicateGroups(ctx, summaries)
	if err != nil {
		g.metrics.ObserveOracle("grouper", OracleOutcomeError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "grouping failed")
		return nil, appErrors.Wrap(err, appErrors.ErrGrouping.Code, appErrors.ErrGrouping.Status, appErrors.ErrGrouping.Message)
	}
	g.metrics.ObserveOracle("grouper", OracleOutcomeOK, time.Since(start))
	span.SetAttributes(attribute.Int("oracle.groups", len(groups)))
	return groups, nil
}

// MemoizingDuplicateGrouper caches successful answers keyed by the exact
// summary sequence. Failures are never cached.
type MemoizingDuplicateGrouper struct {
	inner   DuplicateGrouper
	cache   *CacheService
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

func NewMemoizingDuplicateGrouper(inner DuplicateGrouper, cache *CacheService, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *MemoizingDuplicateGrouper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoizingDuplicateGrouper{inner: inner, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func (g *MemoizingDuplicateGrouper) FindDuplicateGroups(ctx context.Context, summaries []models.RequestSummary) ([][]int, error) {
	if !g.cache.Enabled() {
		return g.inner.FindDuplicateGroups(ctx, summaries)
	}
	key, err := fingerprint(summaries)
	if err != nil {
		return g.inner.FindDuplicateGroups(ctx, summaries)
	}

	var cached [][]int
	if hit, err := g.cache.Get(ctx, key, &cached); err == nil && hit {
		g.metrics.ObserveOracle("grouper", OracleOutcomeMemoized, 0)
		return cached, nil
	}

	groups, err := g.inner.FindDuplicateGroups(ctx, summaries)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, key, groups, g.ttl); err != nil {
		g.logger.Debug("duplicate memo not stored", zap.Error(err))
	}
	return groups, nil
}

const (
	duplicateMemoPrefix  = "dupes:"
	duplicateMemoPattern = duplicateMemoPrefix + "*"
)

func fingerprint(summaries []models.RequestSummary) (string, error) {
	raw, err := json.Marshal(summaries)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return duplicateMemoPrefix + hex.EncodeToString(sum[:]), nil
}
