package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the chatscout application
var rootCmd = &cobra.Command{
	Use:   "chatscout",
	Short: "Ask questions about your Google Chat spaces from the terminal",
	Long: `chatscout is a conversational assistant for Google Chat. It finds the
spaces you ask about and answers questions about their messages, walking
you through Google authorization the first time it needs access.

It can run as:
  - An interactive assistant in your terminal (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// debugMode is shared by all subcommands through the persistent flag.
var debugMode bool

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "chatscout version %s\n" .Version}}`)

	// If no subcommand is provided, run the chat command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
