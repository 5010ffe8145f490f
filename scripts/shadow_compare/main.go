package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/internal/repository"
	"github.com/noah-isme/dormfix-api/internal/service"
	"github.com/noah-isme/dormfix-api/pkg/config"
	"github.com/noah-isme/dormfix-api/pkg/llm"
)

type sample struct {
	ID          string          `json:"id"`
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	RoomNumber  string          `json:"roomNumber"`
	Priority    models.Priority `json:"priority"`
	Status      models.Status   `json:"status"`
	CreatedDate time.Time       `json:"createdDate"`
}

type comparison struct {
	Sample      sample
	Rule        models.UrgencyAssessment
	LLM         models.UrgencyAssessment
	Error       error
	DurationLLM time.Duration
}

func main() {
	var (
		inputPath string
		timeout   time.Duration
		strict    bool
	)

	flag.StringVar(&inputPath, "input", "", "JSON array of requests to compare (defaults to the demo seed)")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "Per-call oracle timeout")
	flag.BoolVar(&strict, "strict", false, "Exit non-zero when a critical/high disagreement is found")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	client, err := llm.New(llm.Config{APIKey: cfg.Oracle.APIKey, BaseURL: cfg.Oracle.BaseURL, Model: cfg.Oracle.Model})
	if err != nil {
		log.Fatalf("failed to init llm client: %v", err)
	}

	samples, err := loadSamples(inputPath)
	if err != nil {
		log.Fatalf("failed to load samples: %v", err)
	}

	rules := service.NewRuleUrgencyClassifier()
	remote := service.NewLLMUrgencyClassifier(client)

	var (
		comparisons []comparison
		breaking    int
		minor       int
	)
	for _, s := range samples {
		comp := compareSample(rules, remote, s, timeout)
		switch {
		case comp.Error != nil:
			breaking++
		case comp.Rule.Urgency != comp.LLM.Urgency:
			if comp.Rule.Urgency.Urgent() != comp.LLM.Urgency.Urgent() {
				breaking++
			} else {
				minor++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)
	compareGroups(samples, service.NewRuleDuplicateGrouper(), service.NewLLMDuplicateGrouper(client), timeout)

	fmt.Printf("Urgent-boundary diffs: %d, Tier diffs: %d\n", breaking, minor)
	if strict && breaking > 0 {
		os.Exit(1)
	}
}

func loadSamples(path string) ([]sample, error) {
	if path == "" {
		seed := repository.SeedRequests()
		out := make([]sample, 0, len(seed))
		for _, r := range seed {
			out = append(out, sample{
				ID:          r.ID,
				Category:    r.Category,
				Description: r.Description,
				RoomNumber:  r.RoomNumber,
				Priority:    r.Priority,
				Status:      r.Status,
				CreatedDate: r.CreatedDate,
			})
		}
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []sample
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no samples defined in %s", path)
	}
	return out, nil
}

func compareSample(rules, remote service.UrgencyClassifier, s sample, timeout time.Duration) comparison {
	comp := comparison{Sample: s}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ruleResult, err := rules.Classify(ctx, s.Category, s.Description)
	if err != nil {
		comp.Error = fmt.Errorf("rule classifier failed: %w", err)
		return comp
	}
	comp.Rule = ruleResult

	start := time.Now()
	llmResult, err := remote.Classify(ctx, s.Category, s.Description)
	comp.DurationLLM = time.Since(start)
	if err != nil {
		comp.Error = fmt.Errorf("llm classifier failed: %w", err)
		return comp
	}
	comp.LLM = llmResult
	return comp
}

func compareGroups(samples []sample, rules, remote service.DuplicateGrouper, timeout time.Duration) {
	summaries := make([]models.RequestSummary, 0, len(samples))
	for _, s := range samples {
		summaries = append(summaries, models.Summarize(models.MaintenanceRequest{
			RoomNumber:  s.RoomNumber,
			Category:    s.Category,
			Priority:    s.Priority,
			Description: s.Description,
			Status:      s.Status,
			CreatedDate: s.CreatedDate,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ruleGroups, err := rules.FindDuplicateGroups(ctx, summaries)
	if err != nil {
		fmt.Printf("Rule grouper failed: %v\n", err)
		return
	}
	llmGroups, err := remote.FindDuplicateGroups(ctx, summaries)
	if err != nil {
		fmt.Printf("LLM grouper failed: %v\n", err)
		return
	}

	fmt.Println("Duplicate Groups")
	fmt.Println("================")
	fmt.Printf("  Rule: %v\n", labelGroups(samples, ruleGroups))
	fmt.Printf("  LLM:  %v\n", labelGroups(samples, llmGroups))
	fmt.Printf("  Match: %t\n", reflect.DeepEqual(canonical(ruleGroups), canonical(llmGroups)))
}

func labelGroups(samples []sample, groups [][]int) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		labels := make([]string, 0, len(g))
		for _, idx := range g {
			if idx >= 0 && idx < len(samples) {
				labels = append(labels, samples[idx].ID)
			}
		}
		out = append(out, labels)
	}
	return out
}

func canonical(groups [][]int) [][]int {
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		cp := append([]int(nil), g...)
		sort.Ints(cp)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) == 0 || len(out[j]) == 0 {
			return len(out[i]) < len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

func printReport(results []comparison) {
	fmt.Println("Shadow Oracle Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.Rule.Urgency != res.LLM.Urgency {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Sample.ID, res.Sample.Category)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Rule: %s (%s)\n", res.Rule.Urgency, res.Rule.Reason)
		fmt.Printf("  LLM:  %s (%s) in %s\n", res.LLM.Urgency, res.LLM.Reason, res.DurationLLM)
	}
}
