package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Inspect and change configuration",
	Long: `Read and write configuration values.

Settings live in config.yaml under the per-user config directory and can be
overridden per invocation with LINKHOARD_* environment variables.

Example usage:
  lh config list
  lh config get api_token
  lh config set immediate_sync true`,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, _ := loadConfig()

		value, err := loader.Get(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%v\n", value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist one configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		loader, _ := loadConfig()

		if err := loader.Set(args[0], args[1]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Set %s\n", ui.RenderPass("✓"), args[0])
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every configuration value",
	Run: func(cmd *cobra.Command, args []string) {
		loader, _ := loadConfig()

		fmt.Printf("%s %s\n", ui.RenderTitle("Config"), ui.RenderMuted(loader.Dir()))
		for _, key := range config.Keys() {
			value, err := loader.Get(key)
			if err != nil {
				continue
			}
			if key == "api_token" && value != "" {
				value = "********"
			}
			fmt.Printf("  %-20s %v\n", key, value)
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
