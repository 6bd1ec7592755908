// Package main is the entry point for api-firewall.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.toml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "api-firewall",
	Short: "Policy-enforcing gateway for LLM APIs",
	Long: `api-firewall sits between applications and LLM providers (OpenAI,
Anthropic, Cerebras), enforcing model allowlists, content policy and
client-side rate limits while relaying streaming responses.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
