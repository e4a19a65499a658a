package main

import (
	"fmt"

	"github.com/taskfleet/taskfleet/internal/classify"
	"github.com/taskfleet/taskfleet/internal/config"
	"github.com/taskfleet/taskfleet/internal/failover"
	"github.com/taskfleet/taskfleet/internal/llm"
	"github.com/taskfleet/taskfleet/internal/orchestrator"
	"github.com/taskfleet/taskfleet/internal/team"
	"github.com/taskfleet/taskfleet/internal/usage"
	"github.com/taskfleet/taskfleet/internal/warehouse"
)

// stack is the fully wired execution stack behind the CLI commands.
type stack struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	selector *failover.Selector
	tracker  *usage.Tracker

	store *usage.Store
	wh    *warehouse.Executor
}

// buildStack wires the orchestrator and its collaborators from configuration.
// Callers must Close the stack when done.
func buildStack(cfg *config.Config) (*stack, error) {
	client, err := llm.NewClient(llm.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	store, err := usage.OpenStore(cfg.UsageDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening usage store: %w", err)
	}

	tracker, err := usage.NewTracker(store, cfg.Quota.DailyLimit, cfg.Quota.WarnFraction)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating usage tracker: %w", err)
	}

	var wh *warehouse.Executor
	if cfg.Warehouse.DBPath != "" {
		wh, err = warehouse.Open(cfg.Warehouse.DBPath, cfg.Warehouse.MaxRows)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("opening warehouse: %w", err)
		}
	}

	prompts := team.DefaultPrompts()
	if cfg.Teams.PromptsFile != "" {
		prompts, err = team.LoadPrompts(cfg.Teams.PromptsFile)
		if err != nil {
			store.Close()
			if wh != nil {
				wh.Close()
			}
			return nil, err
		}
	}

	selector := failover.NewSelector(cfg.Models.Primary, cfg.Models.Fallback, cfg.Models.FallbackAfterAttempts)
	factory := team.NewFactory(client, wh, prompts, cfg.Teams.MaxTurns)

	orch := orchestrator.New(classify.NewClassifier(), factory, selector, tracker, orchestrator.Options{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		Delay:          cfg.Retry.Delay,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
		ChunkWords:     cfg.Streaming.ChunkWords,
		ChunkDelay:     cfg.Streaming.ChunkDelay,
	})

	return &stack{
		cfg:      cfg,
		orch:     orch,
		selector: selector,
		tracker:  tracker,
		store:    store,
		wh:       wh,
	}, nil
}

// Close releases the stack's database handles.
func (s *stack) Close() {
	if s.wh != nil {
		s.wh.Close()
	}
	s.store.Close()
}
