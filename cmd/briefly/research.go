package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/internal/research"
	"github.com/brieflyhq/briefly/internal/scrape"
	"github.com/brieflyhq/briefly/internal/search"
	"github.com/brieflyhq/briefly/provider"
)

// researchCMD runs a one-off research from the terminal and prints the
// formatted brief. No quota, no persistence.
func researchCMD() *cobra.Command {
	var cfgPath string
	var enrich bool
	var sources []string

	var cmd = &cobra.Command{
		Use:   "research [topic]",
		Short: "Run a research brief from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			topic := strings.Join(args, " ")

			adapters := search.BuildAdapters(search.Config{
				TavilyAPIKey:  cfg.Sources.TavilyAPIKey,
				BraveAPIKey:   cfg.Sources.BraveAPIKey,
				YouTubeAPIKey: cfg.Sources.YouTubeAPIKey,
				UserAgent:     cfg.Sources.UserAgent,
			})
			if len(adapters) == 0 {
				return fmt.Errorf("no search sources configured")
			}

			svc := &research.Service{
				Adapters:       adapters,
				Budgets:        search.DefaultBudgets(),
				PerSourceLimit: cfg.Research.PerSourceLimit,
				Logger:         log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
			}
			if enrich && cfg.LLM.APIKey != "" {
				fetcher, err := scrape.New(scrape.Kind(cfg.Research.FetcherKind), scrape.DefaultTimeout, scrape.MaxCharsDefault)
				if err != nil {
					return err
				}
				llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Options{
					APIKey:      cfg.LLM.APIKey,
					Model:       cfg.LLM.Model,
					Temperature: cfg.LLM.Temperature,
					MaxTokens:   cfg.LLM.MaxTokens,
					Timeout:     cfg.LLM.Timeout,
				})
				if err != nil {
					return err
				}
				svc.Fetcher = fetcher
				svc.LLM = llm
			}

			var kinds []search.Kind
			for _, s := range sources {
				k, ok := search.ParseKind(s)
				if !ok {
					return fmt.Errorf("unknown source: %s", s)
				}
				kinds = append(kinds, k)
			}

			resp, err := svc.Run(context.Background(), research.Request{
				Topic:   topic,
				Enrich:  enrich,
				Sources: kinds,
			})
			if err != nil {
				return err
			}
			fmt.Println(resp.FormattedText)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enrich, "enrich", false, "scrape top results and rewrite the summary")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "restrict to sources (ai_summary, web, forum, link_aggregator, video)")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
