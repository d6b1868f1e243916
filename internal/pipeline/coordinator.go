package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// Coordinator arbitrates the rule-based and LLM-based matchers across all
// three layers and writes a decision-log entry for every analysis,
// regardless of whether logging was explicitly requested (spec.md §4.F
// "Decision log").
type Coordinator struct {
	provider ports.Provider
	model    string
	registry ports.PlaybookRegistry
	log      ports.IntentLog
	logger   logging.Logger
}

// NewCoordinator constructs a Coordinator. log may be nil to disable
// decision logging in tests, though production callers should always wire
// one per spec.md §4.F.
func NewCoordinator(provider ports.Provider, model string, registry ports.PlaybookRegistry, log ports.IntentLog) *Coordinator {
	return &Coordinator{
		provider: provider,
		model:    model,
		registry: registry,
		log:      log,
		logger:   logging.NewComponentLogger("pipeline.Coordinator"),
	}
}

// Analyze runs the full three-layer pipeline and writes the decision log.
func (c *Coordinator) Analyze(ctx context.Context, in Input, cfg Config) (Result, error) {
	result := Result{}

	l1, err := c.arbitrateLayer1(ctx, in, cfg)
	if err != nil {
		c.logger.Warn("layer1 arbitration error: %v", err)
	}
	result.Layer1 = l1

	if InteractionType(l1.Value) == InteractionStartPlaybook {
		l2 := c.layer2(ctx, in, cfg)
		result.Layer2 = &l2

		l3, legalSet := c.layer3(ctx, in, l2.Value)
		result.Layer3 = &l3
		result.SelectedPlaybookCode = l3.Value

		if l3.Value != "" {
			c.detectMultiStep(ctx, &result, in, l3.Value, legalSet)
		}
	}

	c.writeDecisionLog(ctx, in, result)
	return result, nil
}

// arbitrateLayer1 implements the (use_llm, rule_priority) arbitration table
// of spec.md §4.F: the LLM matcher runs iff the rule matcher missed and LLM
// is enabled, or rule priority is disabled (LLM always wins in that case).
func (c *Coordinator) arbitrateLayer1(ctx context.Context, in Input, cfg Config) (LayerDecision, error) {
	ruleType, ruleHit := matchRules(in.Channel, in.RawInput)

	consultLLM := cfg.UseLLM && (!ruleHit || !cfg.RulePriority)
	if !consultLLM {
		if ruleHit {
			return LayerDecision{Value: string(ruleType), Method: MethodRuleBased, Confidence: 0.9}, nil
		}
		return LayerDecision{Value: string(InteractionUnknown), Method: MethodRuleBasedFallback, Confidence: 0}, nil
	}

	decision, err := llmLayer1(ctx, c.provider, c.model, in.RawInput)
	if err != nil {
		if ruleHit {
			return LayerDecision{Value: string(ruleType), Method: MethodRuleBased, Confidence: 0.9}, nil
		}
		return LayerDecision{Value: string(InteractionUnknown), Method: MethodNone, Confidence: 0}, err
	}
	return decision, nil
}

func (c *Coordinator) layer2(ctx context.Context, in Input, cfg Config) LayerDecision {
	if !cfg.UseLLM {
		return LayerDecision{Value: string(DomainUnknown), Method: MethodRuleBasedFallback, Confidence: 0}
	}
	decision, err := llmLayer2(ctx, c.provider, c.model, in.RawInput, in.ActiveIntents)
	if err != nil {
		c.logger.Warn("layer2 llm call failed: %v", err)
		return LayerDecision{Value: string(DomainUnknown), Method: MethodNone, Confidence: 0}
	}
	return decision
}

// layer3 selects a playbook code from the effective set and returns both
// the decision and the legal-code set used to validate it (reused by
// multi-step detection).
func (c *Coordinator) layer3(ctx context.Context, in Input, taskDomain string) (LayerDecision, map[string]bool) {
	candidates := in.EffectivePacks
	legal := make(map[string]bool, len(candidates))
	messages := make([]ports.Message, 0, len(candidates))
	for _, pb := range candidates {
		legal[pb.PlaybookCode] = true
		messages = append(messages, ports.Message{
			Role: ports.RoleUser,
			Content: fmt.Sprintf("code=%s name=%s description=%s tags=%v",
				pb.PlaybookCode, pb.Name, pb.Description, pb.Tags),
		})
	}
	if len(candidates) == 0 {
		return LayerDecision{Value: "", Method: MethodNone, Confidence: 0}, legal
	}

	decision, err := llmLayer3(ctx, c.provider, c.model, taskDomain, in.RawInput, messages, legal)
	if err != nil {
		c.logger.Warn("layer3 llm call failed: %v", err)
		return LayerDecision{Value: "", Method: MethodNone, Confidence: 0}, legal
	}
	return decision, legal
}

// detectMultiStep asks whether the selected playbook alone suffices or the
// request needs a chain of playbooks; a malformed or non-legal step is
// dropped rather than failing the whole turn.
func (c *Coordinator) detectMultiStep(ctx context.Context, result *Result, in Input, selectedCode string, legal map[string]bool) {
	resp, err := llmMultiStepDetect(ctx, c.provider, c.model, in.RawInput, selectedCode)
	if err != nil {
		c.logger.Warn("multi-step detection failed: %v", err)
		return
	}
	if !resp.MultiStep || len(resp.Steps) == 0 {
		return
	}

	steps := make([]playbook.WorkflowStep, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		if !legal[s.PlaybookCode] {
			continue
		}
		step := playbook.WorkflowStep{PackID: s.PlaybookCode, Kind: playbook.KindUserWorkflow}
		if s.Description != "" {
			step.Inputs = map[string]any{"description": s.Description}
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return
	}

	deps := make(map[string][]string, len(resp.StepDependencies))
	for code, dependsOn := range resp.StepDependencies {
		if !legal[code] {
			continue
		}
		filtered := make([]string, 0, len(dependsOn))
		for _, d := range dependsOn {
			if legal[d] {
				filtered = append(filtered, d)
			}
		}
		deps[code] = filtered
	}

	result.MultiStep = true
	result.Steps = steps
	result.StepDependencies = deps
}

func (c *Coordinator) writeDecisionLog(ctx context.Context, in Input, result Result) {
	if c.log == nil {
		return
	}
	entry := ports.IntentLogEntry{
		WorkspaceID: in.WorkspaceID,
		ProfileID:   in.ProfileID,
		RawInput:    in.RawInput,
		Channel:     in.Channel,
		Timestamp:   time.Now(),
		PipelineSteps: map[string]any{
			"layer1": result.Layer1,
			"layer2": result.Layer2,
			"layer3": result.Layer3,
		},
		FinalDecision: map[string]any{
			"selected_playbook_code": result.SelectedPlaybookCode,
			"multi_step":             result.MultiStep,
		},
	}
	if err := c.log.Append(ctx, entry); err != nil {
		c.logger.Warn("intent log append failed: %v", err)
	}
}
