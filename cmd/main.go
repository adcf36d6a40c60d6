package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"race-telemetry-dashboard/internal/config"
	"race-telemetry-dashboard/internal/log"
)

const envPrefix = "RACEDASH"

var cfgFile string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "race-dash",
		Short: "Race Telemetry Dashboard - lap, telemetry and tire analysis of race sessions",
		Long: `Serves an interactive dashboard comparing drivers of a race session:
lap times, telemetry traces, tire compound usage and tire strategy.
Data comes from a racing API; the api command serves one from fixture files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.race-dash.yml)")
	pf.StringVar(&config.APIURL, "api-url", config.DefaultAPIURL, "Base URL of the racing API")
	pf.StringVar(&config.RequestTimeout, "request-timeout", config.DefaultRequestTimeout,
		"Timeout of a single racing API request")
	pf.StringVar(&config.LogLevel, "log-level", "info", "controls the log level (debug, info, warn, error, fatal)")
	pf.StringVar(&config.LogFormat, "log-format", "text", "controls the log output format (json, text)")
	pf.StringVar(&config.LogFile, "log-file", "", "additionally write JSON logs to this rotated file")
	pf.StringVar(&config.LogFilter, "log-filter", "", `zapfilter rules, e.g. "debug+:client info+:*"`)

	cobra.OnInitialize(func() { initConfig(rootCmd) })

	// Add commands
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(apiCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(racesCmd())
	rootCmd.AddCommand(driversCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(healthCmd())
	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(rootCmd *cobra.Command) {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".race-dash")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}

	bindFlags(rootCmd, v)
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, v)
	}
}

// bindFlags applies config file and environment values to every flag not set
// on the command line. --api-url is read from RACEDASH_API_URL.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := setFlag(cmd.Flags(), f, val); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
			}
		}
	})
}

// setFlag handles list values from yaml files, which viper returns as slices.
func setFlag(fs *pflag.FlagSet, f *pflag.Flag, val any) error {
	if items, ok := val.([]any); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return fs.Set(f.Name, strings.Join(parts, ","))
	}
	return fs.Set(f.Name, fmt.Sprintf("%v", val))
}

func setupLogger() error {
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	var opts []log.Option
	if config.LogFile != "" {
		opts = append(opts, log.WithFile(config.LogFile))
	}
	if config.LogFilter != "" {
		opts = append(opts, log.WithFilterRules(config.LogFilter))
	}

	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, level, opts...)
	case "text":
		logger = log.DevLogger(os.Stderr, level, opts...)
	default:
		return fmt.Errorf("invalid log format %q (use json or text)", config.LogFormat)
	}
	log.ResetDefault(logger)
	return nil
}
