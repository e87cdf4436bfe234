package main

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dms-object-service/internal/client"
)

const (
	cfgKeyServer  = "server"
	cfgKeyUser    = "user"
	cfgKeyTimeout = "timeout"
	cfgKeyVerbose = "verbose"
)

var (
	configFile string
	cfg        = viper.New()
	api        *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "dmsctl",
	Short: "Manage deletions and history of DMS objects",
	Long: `dmsctl talks to the DMS object service. It moves objects to the trash,
reverts or purges deletion sets and shows content copy history.

Settings come from flags, DMSCTL_* environment variables or a config file.`,
	SilenceUsage:      true,
	PersistentPreRunE: initClient,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: $HOME/.dmsctl.yaml)")
	flags.String(cfgKeyServer, "http://localhost:8080", "service base URL")
	flags.String(cfgKeyUser, "", "user id sent as X-User-ID")
	flags.Duration(cfgKeyTimeout, 30*time.Second, "request timeout")
	flags.BoolP(cfgKeyVerbose, "v", false, "log requests")
	for _, key := range []string{cfgKeyServer, cfgKeyUser, cfgKeyTimeout, cfgKeyVerbose} {
		_ = cfg.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(deleteCmd, revertCmd, purgeCmd, deletionsCmd, historyCmd, getCmd, freezeCmd)
}

func initClient(cmd *cobra.Command, args []string) error {
	cfg.SetEnvPrefix("DMSCTL")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	if configFile != "" {
		cfg.SetConfigFile(configFile)
	} else {
		cfg.SetConfigName(".dmsctl")
		cfg.SetConfigType("yaml")
		cfg.AddConfigPath("$HOME")
		cfg.AddConfigPath(".")
	}
	if err := cfg.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if cfg.GetBool(cfgKeyVerbose) {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	user := cfg.GetString(cfgKeyUser)
	if user == "" {
		return fmt.Errorf("a user id is required (--user or DMSCTL_USER)")
	}
	api = client.New(cfg.GetString(cfgKeyServer), user, cfg.GetDuration(cfgKeyTimeout))
	return nil
}
