package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify LitVerse CLI configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: litverse init")
			return err
		}

		fmt.Println("Current Configuration:")
		fmt.Println("----------------------")

		v := reflect.ValueOf(*cfg)
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			section := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
			fmt.Printf("[%s]\n", section)
			for j := 0; j < field.NumField(); j++ {
				tag := field.Type().Field(j).Tag.Get("yaml")
				value := fmt.Sprintf("%v", field.Field(j).Interface())
				if tag == "token" && value != "" {
					value = "(set)"
				}
				fmt.Printf("  %s: %s\n", tag, value)
			}
			fmt.Println()
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long:  `Set a configuration value. Key should be in format 'section.key' (e.g., server.url).`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		value := args[1]

		cfg, err := config.Load()
		if err != nil {
			printError("Configuration not initialized")
			return err
		}

		switch key {
		case "server.url":
			if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
				return fmt.Errorf("server.url must start with http:// or https://")
			}
			cfg.Server.URL = strings.TrimRight(value, "/")
		case "database.path":
			cfg.Database.Path = value
		case "output.currency":
			cfg.Output.Currency = value
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		printSuccess(fmt.Sprintf("Updated %s to %s", key, value))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// currency is the symbol printed before prices.
func currency() string {
	if config.GlobalConfig != nil && config.GlobalConfig.Output.Currency != "" {
		return config.GlobalConfig.Output.Currency
	}
	if cfg, err := config.Load(); err == nil && cfg.Output.Currency != "" {
		return cfg.Output.Currency
	}
	return "$"
}
