package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/datepoll/core/buildinfo"
	"github.com/m3rciful/datepoll/core/cmd"
	"github.com/m3rciful/datepoll/internal/app"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(c *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}

	root := &cobra.Command{
		Use:   "datepoll",
		Short: "Telegram bot that turns picked calendar dates into a group poll",
		Long: `datepoll shows an inline calendar, lets a user pick candidate dates and
publishes them as a non-anonymous, multiple-answer poll.

Configuration is read from a YAML file (--config, then CONFIG_PATH, then
config.yaml; a missing file is fine) and overridden by the environment
(BOT_TOKEN, GROUP_CHAT_ID, PORT, DB_DRIVER, ...).`,
		Version:      buildinfo.String(),
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.SetVersionTemplate(`{{printf "datepoll %s\n" .Version}}`)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(serve, newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.OutOrStdout(), "datepoll %s\n", buildinfo.String())
			return err
		},
	}
}

func runServe(configPath string) error {
	return cmd.Run(cmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
}
