/*
Copyright © 2026 Maxwell Melo <maxwell.melo0@gmail.com>
*/
package cmd

import (
	"os"

	"github.com/maxwellmelo/lighter-backend/internal/config"
	"github.com/maxwellmelo/lighter-backend/internal/constant"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lighter-backend",
	Short: "Trading backend for the Lighter zk-exchange",
	Long: `lighter-backend exposes a small HTTP JSON API that validates trading
commands (orders, cancels, position management, account queries) and forwards
them to the Lighter signing SDK. Order signing, nonce sequencing and on-chain
submission are handled entirely by the SDK.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		logrus.SetReportCaller(config.Env.Log.ShowCaller)

		if config.Env.Env == constant.ProductionEnvironment {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		}

		logLevel, err := logrus.ParseLevel(config.Env.Log.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(logLevel)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yml)")
}
