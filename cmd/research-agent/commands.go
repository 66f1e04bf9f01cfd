package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/agent"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/orchestrator"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Classify a request without calling any backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysis := router.NewTaskAnalyzer().Analyze(strings.Join(args, " "))
		return writeJSON(cmd, analysis)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <text>",
	Short: "Handle a request end to end",
	Long: `Classifies the request, gathers context from the database when the task
needs it and runs the execution unit on the best backend with a credential.

Example:
  RESEARCH_API_KEY_OPENAI=sk-... research-agent --mode demo run "write an abstract for my PCR optimization experiment"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		taskType, _ := flags.GetString("task")
		backendID, _ := flags.GetString("backend")
		model, _ := flags.GetString("model")
		title, _ := flags.GetString("title")
		rawParams, _ := flags.GetStringToString("param")
		showMetrics, _ := flags.GetBool("metrics")

		if taskType != "" && !isRunnable(router.TaskType(taskType)) {
			return errors.Errorf("unknown task type %q", taskType)
		}

		reg := prometheus.NewRegistry()
		o, closeStore, err := newOrchestrator(cmd, reg)
		if err != nil {
			return err
		}
		defer closeStore()

		resp := o.Handle(cmd.Context(), &orchestrator.Request{
			UserID:     viper.GetInt32("user"),
			Text:       strings.Join(args, " "),
			Title:      title,
			TaskType:   router.TaskType(taskType),
			Parameters: parseParams(rawParams),
			Config:     &agent.Config{BackendID: backendID, Model: model},
		})
		if err := writeJSON(cmd, resp); err != nil {
			return err
		}
		if showMetrics {
			if err := writeMetrics(cmd, reg); err != nil {
				return err
			}
		}
		if !resp.Result.Success {
			return errors.Errorf("%s: %s", resp.Result.Metadata.ErrorKind, resp.Result.Error)
		}
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Show the ranked context gathered for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		o, closeStore, err := newOrchestrator(cmd, nil)
		if err != nil {
			return err
		}
		defer closeStore()

		agg := o.RetrieveContext(cmd.Context(), viper.GetInt32("user"), strings.Join(args, " "), limit)
		return writeJSON(cmd, agg)
	},
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List backend capabilities and execution units",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile(viper.GetViper())
		if err != nil {
			return err
		}
		registry := ai.NewDefaultCapabilityRegistry()
		if p.AICapabilitiesFile != "" {
			if _, err := orchestrator.LoadCapabilities(registry, p.AICapabilitiesFile); err != nil {
				return err
			}
		}

		printf(cmd, "Backends:\n")
		for _, id := range registry.IDs() {
			c := registry.Get(id)
			printf(cmd, "  %-18s quality=%-6s cost=%-6s speed=%-6s best_for=%s\n",
				c.BackendID, c.Quality, c.Cost, c.Speed, strings.Join(c.BestFor, ","))
		}

		creds := envCredentials{v: viper.GetViper()}
		printf(cmd, "Credentials: %s\n", orNone(configuredBackends(creds, ai.NewBackendFactory(registry, nil).SupportedBackends())))

		printf(cmd, "Execution units:\n")
		for _, t := range agent.NewFactory(agent.Deps{}).ListAvailable() {
			printf(cmd, "  %s\n", t)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Initialize the database schema, and seed it in demo mode",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile(viper.GetViper())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()
		printf(cmd, "database ready: driver=%s mode=%s\n", p.Driver, p.Mode)
		return nil
	},
}

func init() {
	runCmd.Flags().String("task", "", "task type, skips classification")
	runCmd.Flags().String("backend", "", "preferred backend id")
	runCmd.Flags().String("model", "", "model override")
	runCmd.Flags().String("title", "", "title for writing tasks")
	runCmd.Flags().StringToString("param", nil, "unit parameter, e.g. --param target_language=german")
	runCmd.Flags().Bool("metrics", false, "print execution metrics after the result")

	contextCmd.Flags().Int("limit", agent.DefaultContextLimit, "maximum number of context items")
}

// newOrchestrator opens the store and assembles the pipeline. The returned
// function closes the store.
func newOrchestrator(cmd *cobra.Command, reg prometheus.Registerer) (*orchestrator.Orchestrator, func(), error) {
	p, err := loadProfile(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := newAIConfig(p)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cmd.Context(), p)
	if err != nil {
		return nil, nil, err
	}

	o, err := orchestrator.NewFromStore(st, cfg, envCredentials{v: viper.GetViper()}, orchestrator.Options{Registerer: reg})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return o, func() { st.Close() }, nil
}

func isRunnable(t router.TaskType) bool {
	return agent.NewFactory(agent.Deps{}).IsSupported(t)
}

// parseParams converts flag values to unit parameters. Integer values become ints.
func parseParams(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && fmt.Sprint(n) == v {
			params[k] = n
			continue
		}
		params[k] = v
	}
	return params
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeMetrics prints counter and histogram sample counts of the gathered families.
func writeMetrics(cmd *cobra.Command, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, f := range families {
		for _, m := range f.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			printf(cmd, "%s{%s} %g\n", f.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}

func orNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
