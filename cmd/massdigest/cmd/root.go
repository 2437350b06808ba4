package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"massnet.org/massdigest/config"
	"massnet.org/massdigest/logging"
)

const envPrefix = "massdigest"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// Execute runs RootCmd and exits with status 1 on failure.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the state shared by all commands of one root command.
type app struct {
	cfgFile           string
	flagLogDir        string
	flagLogLevel      string
	flagWorkers       int
	flagCheckpointDir string

	v               *viper.Viper
	cfg             *config.Config
	usingConfigFile bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:               filepath.Base(os.Args[0]),
		Short:             "Resumable SHA-256 and SHA-224 checksums",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initialize,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is "+defaultConfigFile()+")")
	flags.StringVar(&a.flagLogDir, "log_dir", "", "directory for log files")
	flags.StringVar(&a.flagLogLevel, "log_level", "", "level of logs (trace, debug, info, warn, error, fatal, panic)")
	flags.IntVar(&a.flagWorkers, "workers", 0, "number of files hashed in parallel (default is the number of cpus)")
	flags.StringVar(&a.flagCheckpointDir, "checkpoint_dir", "", "directory of the checkpoint database")

	for _, key := range []string{"log_dir", "log_level", "workers", "checkpoint_dir"} {
		a.v.BindPFlag(key, flags.Lookup(key))
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(newSumCmd(a))
	root.AddCommand(newCheckpointsCmd(a))
	root.AddCommand(newAlgorithmsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func defaultConfigFile() string {
	return filepath.Join(config.DefaultHomeDir, config.DefaultConfigFilename)
}

func (a *app) initialize(cmd *cobra.Command, args []string) error {
	if err := a.initConfig(); err != nil {
		return err
	}
	if err := a.initLogger(); err != nil {
		return err
	}
	logging.VPrint(logging.INFO, "command started", logging.LogFormat{
		"command":     cmd.CommandPath(),
		"config_file": a.usingConfigFile,
	})
	return nil
}

// initConfig loads the config file and layers environment variables and
// flags on top of it, in increasing priority.
func (a *app) initConfig() error {
	cfg := config.DefaultConfig()
	filename := a.cfgFile
	if filename == "" {
		if _, err := os.Stat(defaultConfigFile()); err == nil {
			filename = defaultConfigFile()
		}
	}
	if filename != "" {
		loaded, err := config.LoadConfig(filename)
		if err != nil {
			return err
		}
		cfg = loaded
		a.usingConfigFile = true
	}
	if err := config.CheckConfig(cfg); err != nil {
		return err
	}

	a.v.SetDefault("log_dir", cfg.Log.LogDir)
	a.v.SetDefault("log_level", cfg.Log.LogLevel)
	a.v.SetDefault("workers", cfg.Worker.PoolSize)
	a.v.SetDefault("checkpoint_dir", cfg.Checkpoint.Dir)

	cfg.Log.LogDir = a.v.GetString("log_dir")
	cfg.Log.LogLevel = a.v.GetString("log_level")
	cfg.Worker.PoolSize = a.v.GetInt("workers")
	cfg.Checkpoint.Dir = a.v.GetString("checkpoint_dir")
	if err := config.CheckConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// initLogger initializes logging module by config.
func (a *app) initLogger() error {
	return logging.Init(a.cfg.Log.LogDir, config.DefaultLoggingFilename, a.cfg.Log.LogLevel,
		a.cfg.Log.LogAge, a.cfg.Log.DisableCPrint)
}
