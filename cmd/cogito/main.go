// Package main is the entry point for the cogito CLI. cogito runs a
// budget-aware cognitive engine for simulated agents: tiered thinking over
// mock model backends, an internal thought workspace with background
// synthesis, and social decisions about when a thought is worth saying out
// loud.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/config"
	"github.com/normanking/cogito/internal/engine"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/memstore"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/monitor"
	"github.com/normanking/cogito/internal/social"
	"github.com/normanking/cogito/internal/tier"
)

var version = "0.3.0"

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func main() {
	var (
		cfgPath     string
		profilePath string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:   "cogito",
		Short: "A cognitive engine for budget-aware simulated agents",
		Long: "cogito processes stimuli through tiered cognition (reflex through\n" +
			"comprehensive), routes each tier to a model class under an hourly\n" +
			"budget, accumulates thoughts into streams it synthesizes in the\n" +
			"background, and decides socially when a thought should be spoken.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.cogito/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "agent profile YAML (default: built-in demo profile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	setup := func() (*config.Config, error) {
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Setup(level, cfg.Logging.File); err != nil {
			return nil, err
		}
		if profilePath != "" {
			cfg.Agent.ProfilePath = profilePath
		}
		return cfg, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the cogito version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cogito %s\n", version)
		},
	})

	rootCmd.AddCommand(thinkCmd(setup))
	rootCmd.AddCommand(demoCmd(setup))
	rootCmd.AddCommand(statusCmd(setup))
	rootCmd.AddCommand(reportCmd(setup))
	rootCmd.AddCommand(monitorCmd(setup))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// buildEngine assembles an engine from configuration: profile, mock
// backends, and, when enabled, the SQLite memory store.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	profile, err := loadProfile(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{}
	var store *memstore.Store
	if cfg.Memory.Enabled {
		store, err = memstore.Open(cfg.Memory.MemoryPath(), profile.AgentID)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory store: %w", err)
		}
		opts = append(opts, engine.WithMemory(store))
	}

	eng, err := engine.New(profile, engine.Config{
		Budget:          cfg.Budget.ToBudgetConfig(),
		Mock:            cfg.Mock.ToMockConfig(),
		Background:      cfg.Background.ToBackgroundConfig(),
		MaxWorkingTurns: cfg.Mind.MaxWorkingTurns,
	}, opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		eng.Close()
		if store != nil {
			store.Close()
		}
	}
	return eng, cleanup, nil
}

func loadProfile(cfg *config.Config) (*agent.Profile, error) {
	if cfg.Agent.ProfilePath != "" {
		return agent.LoadProfile(cfg.Agent.ProfilePath)
	}
	return demoProfile(), nil
}

// demoProfile is the built-in agent used when no profile file is given.
func demoProfile() *agent.Profile {
	return &agent.Profile{
		AgentID:          "demo-rivera",
		Name:             "Rivera",
		Role:             "senior backend engineer",
		BackstorySummary: "Twelve years building data infrastructure; joined to untangle the storage layer.",
		YearsExperience:  12,
		Skills: agent.Skills{
			Technical: map[string]int{
				"database":   9,
				"golang":     8,
				"kubernetes": 6,
			},
			Domains: map[string]int{
				"payments":   7,
				"migrations": 8,
			},
			Soft: map[string]int{
				"mentoring": 7,
			},
		},
		PersonalityMarkers: agent.PersonalityMarkers{
			Openness:          6,
			Conscientiousness: 8,
			Extraversion:      4,
			Agreeableness:     6,
			Neuroticism:       3,
			Perfectionism:     7,
			Pragmatism:        8,
			RiskTolerance:     4,
		},
		SocialMarkers: agent.SocialMarkers{
			Confidence:           7,
			Assertiveness:        6,
			Deference:            4,
			Curiosity:            6,
			SocialCalibration:    7,
			StatusSensitivity:    3,
			FacilitationInstinct: 4,
			ComfortInSpotlight:   5,
			ComfortWithConflict:  6,
		},
		CommunicationStyle: agent.CommunicationStyle{
			VocabularyLevel:   agent.VocabTechnical,
			SentenceStructure: "direct",
			Formality:         "casual",
			Quirks:            []string{"reaches for database analogies"},
		},
		KnowledgeDomains: []string{"storage", "data modeling", "reliability"},
		KnowledgeGaps:    []string{"frontend", "marketing"},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// COMMANDS
// ─────────────────────────────────────────────────────────────────────────────

func thinkCmd(setup func() (*config.Config, error)) *cobra.Command {
	var urgency, complexity, relevance float64

	cmd := &cobra.Command{
		Use:   "think <stimulus>",
		Short: "Process one stimulus through tiered cognition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			eng, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			stimulus := strings.Join(args, " ")
			out, err := eng.HandleStimulus(cmd.Context(), stimulus, urgency, complexity, relevance, nil)
			if err != nil {
				return err
			}
			printOutcome(out)
			return nil
		},
	}
	cmd.Flags().Float64Var(&urgency, "urgency", 0.5, "how quickly a response is needed (0-1)")
	cmd.Flags().Float64Var(&complexity, "complexity", 0.5, "how involved the stimulus is (0-1)")
	cmd.Flags().Float64Var(&relevance, "relevance", 0.7, "how relevant the stimulus is to the agent (0-1)")
	return cmd
}

func demoCmd(setup func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted conversation against the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			eng, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return runDemo(cmd.Context(), eng)
		},
	}
}

func statusCmd(setup func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine health, budget, and workspace state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			eng, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			eng.Router().CheckHealth(cmd.Context())
			printStatus(eng.Status())
			return nil
		},
	}
}

func reportCmd(setup func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Run the demo workload and render a markdown report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			eng, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			md, err := buildReport(cmd.Context(), eng)
			if err != nil {
				return err
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				fmt.Println(md)
				return nil
			}
			rendered, err := renderer.Render(md)
			if err != nil {
				fmt.Println(md)
				return nil
			}
			fmt.Print(rendered)
			return nil
		},
	}
}

func monitorCmd(setup func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Live dashboard: budget, routing, and the engine's event feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if cfg.Logging.File == "" {
				// Keep log lines off the dashboard.
				if err := logging.Setup(cfg.Logging.Level, os.DevNull); err != nil {
					return err
				}
			}
			eng, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := eng.Start(); err != nil {
				return err
			}
			defer eng.Stop()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go driveDemoTraffic(ctx, eng)

			lipgloss.SetColorProfile(termenv.ColorProfile())
			return monitor.Run(eng)
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DEMO SCRIPT
// ─────────────────────────────────────────────────────────────────────────────

type demoBeat struct {
	speaker    string
	stimulus   string
	urgency    float64
	complexity float64
	relevance  float64
}

var demoScript = []demoBeat{
	{"Sam", "The database migration is running behind schedule again.", 0.4, 0.6, 0.9},
	{"Sam", "Replication lag on the read pool doubled overnight.", 0.5, 0.6, 0.9},
	{"Priya", "Marketing wants the landing page refresh by Friday.", 0.3, 0.3, 0.2},
	{"Sam", "Production is throwing connection pool errors right now!", 0.9, 0.6, 0.9},
	{"Priya", "Rivera, what do you think we should do about the migration?", 0.6, 0.6, 0.9},
}

func demoContext() *social.Context {
	return &social.Context{
		Participants: []social.Participant{
			{ID: "demo-rivera", Name: "Rivera"},
			{ID: "sam", Name: "Sam", Expertise: []string{"deployment"}},
			{ID: "priya", Name: "Priya", Expertise: []string{"product"}},
		},
		Phase:  social.PhaseDiscussion,
		Energy: social.EnergyLively,
		MyRole: "expert",
	}
}

func runDemo(ctx context.Context, eng *engine.Engine) error {
	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	sctx := demoContext()
	fmt.Println(headingStyle.Render("cogito demo — a standup, as heard by " + eng.Profile().Name))
	fmt.Println()

	for _, beat := range demoScript {
		sctx.UpdateSpeaker(speakerID(beat.speaker))
		fmt.Printf("%s %s\n", labelStyle.Render(beat.speaker+":"), beat.stimulus)
		sctx.CurrentSpeaker = ""

		stim := social.Stimulus{Content: beat.stimulus, Topic: mind.ExtractTopic(beat.stimulus)}
		if strings.Contains(beat.stimulus, eng.Profile().Name) {
			stim.DirectedAt = []string{eng.Profile().AgentID}
		}

		out, err := eng.HandleStimulus(ctx, beat.stimulus, beat.urgency, beat.complexity, beat.relevance, nil)
		if err != nil {
			return err
		}
		decision := eng.Decide(stim, sctx)

		if pt := out.Result.PrimaryThought; pt != nil {
			fmt.Printf("  %s [%s/%s] %s\n", dimStyle.Render("thinks"),
				pt.Tier, pt.Type, truncate(pt.Content, 90))
		}
		fmt.Printf("  %s %s (%s)\n\n", dimStyle.Render("decides"),
			decision.Intent, decision.Reason)
	}

	// Let the background loop synthesize what accumulated.
	fmt.Println(dimStyle.Render("...letting background synthesis catch up..."))
	time.Sleep(2 * time.Second)

	if ready := eng.Mind().ReadyToShare(); len(ready) > 0 {
		fmt.Println()
		fmt.Println(headingStyle.Render("Insights ready to share"))
		for _, th := range ready {
			fmt.Printf("  - %s (confidence %.2f)\n", truncate(th.Content, 100), th.Confidence)
		}
	}

	fmt.Println()
	printStatus(eng.Status())
	return nil
}

func speakerID(name string) string {
	return strings.ToLower(name)
}

// driveDemoTraffic loops the demo script so the monitor has live data.
func driveDemoTraffic(ctx context.Context, eng *engine.Engine) {
	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
		beat := demoScript[i%len(demoScript)]
		i++
		_, _ = eng.HandleStimulus(ctx, beat.stimulus, beat.urgency, beat.complexity, beat.relevance, nil)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// OUTPUT
// ─────────────────────────────────────────────────────────────────────────────

func printOutcome(out *engine.Outcome) {
	fmt.Println(headingStyle.Render("Thoughts"))
	for _, th := range out.Result.Thoughts {
		marker := " "
		if out.Result.PrimaryThought != nil && th.ID == out.Result.PrimaryThought.ID {
			marker = "*"
		}
		fmt.Printf("%s [%s/%s conf %.2f] %s\n", marker, th.Tier, th.Type, th.Confidence, th.Content)
	}
	fmt.Println()
	fmt.Printf("%s %v in %dms\n", labelStyle.Render("tiers used:"),
		tierNames(out.Result.TiersUsed), out.Result.ProcessingTimeMs)
	if out.Stream != nil {
		fmt.Printf("%s %q (%d thoughts)\n", labelStyle.Render("stream:"),
			out.Stream.Topic, out.Stream.ThoughtCount())
	}
}

func printStatus(st engine.Status) {
	fmt.Println(headingStyle.Render("Engine status — " + st.AgentName))
	fmt.Println()

	fmt.Println(labelStyle.Render("Budget"))
	fmt.Printf("  hourly $%.2f, spent $%.4f since %s\n",
		st.Budget.HourlyBudget, st.Budget.TotalCostUSD, st.Budget.HourStart.Format(time.Kitchen))
	for _, mt := range tier.ModelTiers() {
		ts := st.Budget.Tiers[mt]
		note := ""
		if ts.Throttled {
			note = "  THROTTLED"
		}
		fmt.Printf("  %-7s %8d tokens  $%.4f  %5.1f%%%s\n",
			mt, ts.Tokens, ts.CostUSD, ts.Utilization*100, note)
	}

	fmt.Println(labelStyle.Render("Router"))
	fmt.Printf("  requests %d, downgrades %d, fallbacks %d, timeouts %d, errors %d\n",
		st.Router.TotalRequests, st.Router.Downgrades, st.Router.Fallbacks,
		st.Router.Timeouts, st.Router.Errors)
	for _, mt := range tier.ModelTiers() {
		fmt.Printf("  %-7s healthy=%v\n", mt, st.Router.Health[mt])
	}

	fmt.Println(labelStyle.Render("Mind"))
	fmt.Printf("  thoughts %d, streams %d, held %d, ready to share %d\n",
		st.Mind.ActiveThoughts, st.Mind.Streams, st.Mind.HeldInsights, st.Mind.ReadyToShare)
	fmt.Printf("  background running: %v\n", st.BackgroundRunning)
}

// buildReport runs the demo workload quietly and summarizes it as markdown.
func buildReport(ctx context.Context, eng *engine.Engine) (string, error) {
	if err := eng.Start(); err != nil {
		return "", err
	}
	defer eng.Stop()

	sctx := demoContext()
	var decisions []string
	for _, beat := range demoScript {
		out, err := eng.HandleStimulus(ctx, beat.stimulus, beat.urgency, beat.complexity, beat.relevance, nil)
		if err != nil {
			return "", err
		}
		decision := eng.Decide(social.Stimulus{
			Content: beat.stimulus,
			Topic:   mind.ExtractTopic(beat.stimulus),
		}, sctx)
		primary := "(no thought)"
		if out.Result.PrimaryThought != nil {
			primary = truncate(out.Result.PrimaryThought.Content, 80)
		}
		decisions = append(decisions, fmt.Sprintf("| %s | %s | %s | %s |",
			truncate(beat.stimulus, 50), tierNames(out.Result.TiersUsed),
			decision.Intent, primary))
	}
	time.Sleep(2 * time.Second)

	st := eng.Status()
	var b strings.Builder
	fmt.Fprintf(&b, "# cogito session report — %s\n\n", st.AgentName)
	b.WriteString("## Stimuli\n\n")
	b.WriteString("| Stimulus | Tiers | Decision | Primary thought |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, row := range decisions {
		b.WriteString(row + "\n")
	}
	b.WriteString("\n## Budget\n\n")
	fmt.Fprintf(&b, "Hourly budget $%.2f, spent $%.4f.\n\n", st.Budget.HourlyBudget, st.Budget.TotalCostUSD)
	b.WriteString("| Model tier | Tokens | Cost | Utilization |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, mt := range tier.ModelTiers() {
		ts := st.Budget.Tiers[mt]
		fmt.Fprintf(&b, "| %s | %d | $%.4f | %.1f%% |\n", mt, ts.Tokens, ts.CostUSD, ts.Utilization*100)
	}
	fmt.Fprintf(&b, "\n## Routing\n\n%d requests, %d downgrades, %d fallbacks, %d timeouts.\n",
		st.Router.TotalRequests, st.Router.Downgrades, st.Router.Fallbacks, st.Router.Timeouts)
	fmt.Fprintf(&b, "\n## Workspace\n\n%d active thoughts in %d streams; %d insights held, %d ready to share.\n",
		st.Mind.ActiveThoughts, st.Mind.Streams, st.Mind.HeldInsights, st.Mind.ReadyToShare)
	return b.String(), nil
}

func tierNames(tiers []tier.CognitiveTier) string {
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
