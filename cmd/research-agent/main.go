package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/internal/profile"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "research-agent",
	Short: "Research assistant AI core",
	Long: `research-agent classifies research requests, gathers the user's own
content as context and runs the matching execution unit against an AI backend.

Configuration is read from flags and RESEARCH_* environment variables.
Backend credentials are read from RESEARCH_API_KEY_<BACKEND>, for example
RESEARCH_API_KEY_OPENAI or RESEARCH_API_KEY_GOOGLE_GEMINI.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("data", ".")
	viper.SetDefault("user", 1)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the core, "prod", "dev" or "demo"`)
	flags.String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("data", ".", "data directory for the sqlite database")
	flags.Int32("user", 1, "user the request is made for")
	flags.String("capabilities", "", "YAML file extending the backend capability table")
	flags.Bool("verbose", false, "enable debug logging")

	for _, name := range []string{"mode", "driver", "dsn", "data", "user", "capabilities", "verbose"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("research")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(analyzeCmd, runCmd, contextCmd, capabilitiesCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadProfile builds the profile from the environment with flag values on top.
func loadProfile(v *viper.Viper) (*profile.Profile, error) {
	p := &profile.Profile{}
	p.FromEnv()

	p.Mode = v.GetString("mode")
	p.Driver = v.GetString("driver")
	p.Data = v.GetString("data")
	if dsn := v.GetString("dsn"); dsn != "" {
		p.DSN = dsn
	}
	if file := v.GetString("capabilities"); file != "" {
		p.AICapabilitiesFile = file
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return st, nil
}

// envCredentials resolves backend credentials from RESEARCH_API_KEY_<BACKEND>.
// The same keys serve every user.
type envCredentials struct {
	v *viper.Viper
}

func (c envCredentials) Credential(_ context.Context, _ int32, backendID string) (string, bool) {
	key := c.v.GetString("api_key_" + backendID)
	return key, key != ""
}

// configuredBackends lists the backends that have a credential.
func configuredBackends(c envCredentials, backendIDs []string) []string {
	var out []string
	for _, id := range backendIDs {
		if _, ok := c.Credential(context.Background(), 0, id); ok {
			out = append(out, id)
		}
	}
	return out
}

func newAIConfig(p *profile.Profile) (*ai.Config, error) {
	cfg := ai.NewConfigFromProfile(p)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ai config")
	}
	return cfg, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
