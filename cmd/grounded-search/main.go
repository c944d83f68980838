package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/grounded-search/pkg/config"
	"github.com/mikeboe/grounded-search/pkg/search"
)

var (
	query  string
	model  string
	dryRun bool
	debug  bool
)

func main() {
	// Results go to stdout, logs to stderr.
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "grounded-search",
		Short: "Google Search via Gemini grounding",
		Long:  `grounded-search queries the Gemini API with the web-search tool enabled and prints the answer with inline citations and a source list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			client := search.NewClient(cfg, slog.Default())

			q := client.NewQuery(query)
			if model != "" {
				q.Model = model
			}
			q.Debug = debug

			if dryRun {
				payload, err := search.PayloadJSON(q)
				if err != nil {
					return err
				}
				fmt.Println(string(payload))
				return nil
			}

			result, err := client.Search(context.Background(), q)
			if err != nil {
				return err
			}

			fmt.Println(result.Markdown())
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The search query")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Gemini model to use (default: GEMINI_MODEL env var or gemini-2.5-flash)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the upstream payload and exit")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Log payload, retries and response details")
	_ = rootCmd.MarkFlagRequired("query")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
