// Command coreserver runs the Conversation Orchestration Core as a
// standalone HTTP service: it loads configuration, wires every component
// from spec.md §4 into the gin engine of internal/server/http, and serves
// until an interrupt/TERM signal arrives. Grounded on the teacher's
// cmd/alex-server entrypoint plus the graceful-shutdown shape of
// internal/delivery/server/bootstrap.RunServer/serveUntilSignal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/background"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/config"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/hooks"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/identity"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/llmprovider"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/observability"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/registry"
	serverhttp "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/server/http"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/steward"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/streaming"
)

var (
	configPath    string
	builtInDir    string
	capabilityDir string
)

func main() {
	root := &cobra.Command{
		Use:   "coreserver",
		Short: "Serve the Conversation Orchestration Core's HTTP surface",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional; MINDSCAPE_* env vars also apply)")
	root.Flags().StringVar(&builtInDir, "playbooks-dir", "", "directory of built-in playbook manifests")
	root.Flags().StringVar(&capabilityDir, "capability-packs-dir", "", "directory of capability-pack playbook manifests")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.NewComponentLogger("coreserver")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	obs, err := observability.New(context.Background(), observability.Config{
		ServiceName:  "coreserver",
		OTLPEndpoint: os.Getenv("MINDSCAPE_OTLP_ENDPOINT"),
	})
	if err != nil {
		return fmt.Errorf("build observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown: %v", err)
		}
	}()

	events := store.NewEventLog()
	timelines := store.NewTimelineStore()
	tasks := store.NewTaskStore()
	cards := store.NewIntentCardStore()
	signals := store.NewSignalStore()
	intentLog := store.NewIntentLog()
	ledger := store.NewHookRunLedger()

	playbooks, err := store.NewPlaybookRegistry(builtInDir, capabilityDir, nil)
	if err != nil {
		return fmt.Errorf("build playbook registry: %w", err)
	}

	provider := llmprovider.New(llmprovider.Config{
		ProviderType: os.Getenv("MINDSCAPE_PROVIDER_TYPE"),
		BaseURL:      os.Getenv("MINDSCAPE_PROVIDER_BASE_URL"),
		APIKey:       os.Getenv("MINDSCAPE_PROVIDER_API_KEY"),
	})

	intentRegistry := registry.Local{}
	identityPort := identity.Local{}

	broadcaster := streaming.NewBroadcaster(obs)
	streamExecutor := streaming.NewExecutor(events, tasks, broadcaster, obs)

	router := orchestrator.NewRouter(orchestrator.Deps{
		Events: events, Tasks: tasks, Timelines: timelines,
		Playbooks: playbooks, Cards: cards, Signals: signals, IntentLog: intentLog,
		Identity: identityPort, IntentRegistry: intentRegistry,
		Provider: provider, Model: cfg.ChatModel,
		Streamer: streamExecutor,
	})
	runner := background.NewRunner(router, events, obs)

	stewardEngine := steward.NewSteward(provider, cfg.ChatModel, cards, intentLog)
	hookRunner := hooks.NewRunner(events, ledger, cfg.EnabledHooks, obs,
		intentExtractFn(intentRegistry),
		stewardAnalyzeFn(stewardEngine, cfg.AutoIntentLayout),
	)

	engine := serverhttp.NewRouter(serverhttp.Deps{
		Router: router, Background: runner, Events: events,
		Timelines: timelines, Broadcaster: broadcaster, Hooks: hookRunner,
		Provider: provider, Model: cfg.ChatModel, Cards: cards, Playbooks: playbooks,
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      engine,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	return serveUntilSignal(logger, httpServer, metricsServer)
}

// intentExtractFn adapts registry.Local's keyword resolver into the
// hooks.Runner's IntentExtractFn shape.
func intentExtractFn(reg ports.IntentRegistryPort) hooks.IntentExtractFn {
	return func(ctx context.Context, req hooks.Request) (map[string]any, []string, error) {
		resolved, err := reg.ResolveIntent(ctx, req.Message, ports.ExecutionContext{
			ActorID: identity.LocalActorID, WorkspaceID: req.WorkspaceID,
		}, nil, "")
		if err != nil {
			return nil, nil, err
		}
		result := map[string]any{
			"intents":    resolved.Intents,
			"themes":     resolved.Themes,
			"confidence": resolved.Confidence,
		}
		return result, resolved.Intents, nil
	}
}

// stewardAnalyzeFn adapts the IntentSteward's AnalyzeTurn into the
// hooks.Runner's StewardAnalyzeFn shape, turning the signal labels
// intent_extract surfaced into the observation-window intent.Signal values
// analyze_turn expects.
func stewardAnalyzeFn(s *steward.Steward, autoIntentLayout bool) hooks.StewardAnalyzeFn {
	return func(ctx context.Context, req hooks.Request, signalLabels []string) (map[string]any, error) {
		now := time.Now()
		turnSignals := make([]intent.Signal, 0, len(signalLabels))
		for _, label := range signalLabels {
			turnSignals = append(turnSignals, intent.Signal{
				WorkspaceID: req.WorkspaceID, ProfileID: req.ProfileID,
				Label: label, Confidence: 1, Source: intent.SourceWSHook,
				MessageID: req.MessageID, Status: intent.SignalCandidate, CreatedAt: now,
			})
		}

		plan, err := s.AnalyzeTurn(ctx, steward.Input{
			WorkspaceID: req.WorkspaceID, ProfileID: req.ProfileID,
			TurnID: req.MessageID, ConversationID: req.ThreadID, Signals: turnSignals,
		}, steward.Config{UseLLM: true, AutoIntentLayout: autoIntentLayout})
		if err != nil {
			return nil, err
		}
		return map[string]any{"layout_plan": plan}, nil
	}
}

func serveUntilSignal(logger logging.Logger, httpServer, metricsServer *http.Server) error {
	errCh := make(chan error, 2)

	go func() {
		logger.Info("HTTP surface listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()
	go func() {
		logger.Info("metrics listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err == nil || err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shutdownErr := httpServer.Shutdown(ctx)
		_ = metricsServer.Shutdown(ctx)

		if shutdownErr != nil {
			return fmt.Errorf("shutdown: %w", shutdownErr)
		}
		logger.Info("stopped")
		return nil
	}
}
