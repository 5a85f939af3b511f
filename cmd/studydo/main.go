// Package main is the entry point for the studydo server and CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the studydo CLI.
var rootCmd = &cobra.Command{
	Use:   "studydo",
	Short: "Turn document collections into study material",
	Long: `studydo ingests documents into spaces and derives study blocks from them:
summaries, flashcards, quizzes, key terms, and more, generated by a local
Ollama model or a remote chat-completions API.

Run "studydo serve" to start the HTTP server, or "studydo import" to load
documents into a space from the command line.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
