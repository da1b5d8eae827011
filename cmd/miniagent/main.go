// Command miniagent runs a single-agent coding assistant loop against a
// streaming generation backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bazelment/miniagent/agent"
	"github.com/bazelment/miniagent/ai"
	"github.com/bazelment/miniagent/ai/anthropic"
	"github.com/bazelment/miniagent/ai/openai"
	"github.com/bazelment/miniagent/config"
	"github.com/bazelment/miniagent/tool"
	"github.com/bazelment/miniagent/tool/builtin"
)

var (
	configPath    string
	providerName  string
	modelName     string
	systemPrompt  string
	maxIterations int
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "miniagent",
	Short: "A minimal coding agent",
	Long: `A minimal coding agent that streams responses from a generation
backend, executes requested tools, and loops until the task is done.`,
}

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one agent turn with a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrompt(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "miniagent.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Backend provider (anthropic, openai)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model name (default: provider default)")
	rootCmd.PersistentFlags().StringVar(&systemPrompt, "system", "", "System prompt")
	rootCmd.PersistentFlags().IntVar(&maxIterations, "max-iterations", 0, "Maximum generation turns per prompt")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runPrompt(ctx context.Context, prompt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if systemPrompt != "" {
		cfg.SystemPrompt = systemPrompt
	}
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}

	logger := newLogger()

	registry := ai.NewRegistry(
		anthropic.New(anthropic.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Logger: logger}),
		openai.New(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Logger: logger}),
	)

	a, err := agent.New(agent.Options{
		Providers:     registry,
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		SystemPrompt:  cfg.SystemPrompt,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	tools := builtinTools()
	for _, t := range tools.List() {
		if err := a.AddTool(t); err != nil {
			return err
		}
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	remove := a.OnEvent(func(ev agent.LoopEvent) {
		switch e := ev.(type) {
		case agent.TextEvent:
			fmt.Print(e.Delta)
		case agent.ToolCallStartedEvent:
			if interactive {
				fmt.Printf("\n[tool: %s]\n", e.Name)
			}
		case agent.ToolCallFinishedEvent:
			if interactive && e.Execution.Error != "" {
				fmt.Printf("[tool %s failed: %s]\n", e.Execution.ToolName, e.Execution.Error)
			}
		}
	})
	defer remove()

	message, err := a.Prompt(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Println()

	if verbose {
		logger.Info("turn finished",
			"stop_reason", string(message.StopReason),
			"input_tokens", message.Usage.InputTokens,
			"output_tokens", message.Usage.OutputTokens)
	}
	return nil
}

func builtinTools() *tool.Registry {
	registry := tool.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		panic(err)
	}
	return registry
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
