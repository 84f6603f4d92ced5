package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/config"
	"github.com/v0xg/autopilot/internal/executor"
	"github.com/v0xg/autopilot/internal/intent"
	"github.com/v0xg/autopilot/internal/llm"
	"github.com/v0xg/autopilot/internal/memory"
	"github.com/v0xg/autopilot/internal/pipeline"
	"github.com/v0xg/autopilot/internal/planner"
	"github.com/v0xg/autopilot/internal/resolver"
	"github.com/v0xg/autopilot/internal/validator"
	"github.com/v0xg/autopilot/internal/voice"
)

var (
	configPath string
	provider   string
	model      string
	startURL   string
	audioPath  string
	storePath  string
	profile    string
	headed     bool
	jsonOut    bool
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "autopilot <request>",
		Short: "Run web automations from natural language requests",
		Long: `autopilot parses a natural language request, analyzes the target page,
plans the browser actions and executes them, asking for input when a step
needs it.

Example:
  autopilot "Search for Python tutorials on YouTube"`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from env or claude)")
	rootCmd.Flags().StringVar(&model, "model", "", "Specific model override")
	rootCmd.Flags().StringVar(&startURL, "url", "", "Starting URL (overrides the website inferred from the request)")
	rootCmd.Flags().StringVar(&audioPath, "audio", "", "Audio file with the spoken request (mp3, wav, m4a)")
	rootCmd.Flags().StringVar(&storePath, "store", "", "SQLite file for selector learnings")
	rootCmd.Flags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	rootCmd.Flags().BoolVar(&headed, "headed", false, "Show the browser window")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	request := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if profile != "" {
		cfg.Browser.ProfileDir = profile
	}
	if headed {
		cfg.Browser.Headless = false
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("logger init failed: %w", err)
		}
	}
	defer logger.Sync() //nolint:errcheck

	client, err := llm.NewClient(cfg.Provider, cfg.Model)
	if err != nil {
		return fmt.Errorf("AI provider init failed: %w", err)
	}

	var transcriber intent.Transcriber
	var clip *voice.Clip
	if audioPath != "" {
		t, err := voice.NewTranscriber(cfg.VoiceModel)
		if err != nil {
			return fmt.Errorf("transcriber init failed: %w", err)
		}
		transcriber = t
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		clip = &voice.Clip{
			Data:      data,
			Format:    strings.TrimPrefix(filepath.Ext(audioPath), "."),
			Timestamp: time.Now(),
		}
	}

	var store memory.Store = memory.NewInMemoryStore()
	if cfg.Store.Path != "" {
		s, err := memory.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("learning store init failed: %w", err)
		}
		store = s
	}
	defer store.Close() //nolint:errcheck

	fmt.Printf("→ Launching browser... ")
	session, err := browser.NewSession(browser.Options{
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		Headless:   cfg.Browser.Headless,
		Timeout:    cfg.Browser.Timeout.Std(),
		ProfileDir: cfg.Browser.ProfileDir,
	}, logger)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("browser launch failed: %w", err)
	}
	defer session.Close()
	fmt.Println("done")

	parser := intent.NewParser(client, transcriber, logger)
	structures := analyzer.New(client, logger, analyzer.WithTTL(cfg.Cache.StructureTTL.Std()))
	elements := resolver.New(structures, client, logger)
	gen := planner.NewGenerator(client, store, logger)
	exec := executor.New(elements, store, executor.NewInputBroker(), logger,
		executor.WithInputTimeout(cfg.InputTimeout.Std()))
	pipe := pipeline.New(parser, structures, gen, exec, validator.New(logger), session, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout.Std())
	defer cancel()

	go answerInputRequests(pipe.Inputs())

	fmt.Printf("→ Automating: %s\n", request)
	result, err := pipe.Run(ctx, pipeline.Request{Text: request, Audio: clip, URL: startURL})
	if err != nil {
		return fmt.Errorf("automation failed: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	if !result.Success && result.Clarification == nil {
		os.Exit(1)
	}
	return nil
}

// answerInputRequests prompts on stdin for every step that needs a value.
func answerInputRequests(broker *executor.InputBroker) {
	reader := bufio.NewReader(os.Stdin)
	for req := range broker.Requests() {
		fmt.Printf("? %s: ", req.Description)
		line, err := reader.ReadString('\n')
		if err != nil {
			continue
		}
		_ = broker.Provide(req.StepID, strings.TrimSpace(line))
	}
}

func printResult(result *pipeline.AutomationResult) {
	if result.Clarification != nil {
		fmt.Println("→ The request needs clarification:")
		for _, q := range result.Clarification.Questions {
			fmt.Printf("  - %s\n", q)
		}
		for _, s := range result.Clarification.Suggestions {
			fmt.Printf("  e.g. %q\n", s)
		}
		return
	}

	for _, r := range result.Results {
		mark := "✓"
		if !r.Success {
			mark = "✗"
		}
		fmt.Printf("  %s %s (%s)\n", mark, r.Description, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}

	if result.Success {
		fmt.Printf("→ Done (confidence %.2f, took %s)\n",
			result.Confidence, result.ExecutionTime.Round(time.Millisecond))
		return
	}
	fmt.Printf("→ %s (confidence %.2f)\n", result.Error, result.Confidence)
	if result.UserGuidance != "" {
		fmt.Printf("  %s\n", result.UserGuidance)
	}
}
