package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
)

// runSearch executes a one-shot search and prints the answer.
func runSearch(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	searchType := fs.String("type", "", "search type: general, news, academic, product, tech_doc")
	maxResults := fs.Int("max", 0, "maximum number of results")
	asJSON := fs.Bool("json", false, "print the raw result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: seeker search <query>")
	}

	t, err := schema.ParseSearchType(*searchType)
	if err != nil {
		return err
	}
	cfg := schema.SearchConfig{MaxResults: *maxResults}
	if *searchType != "" {
		cfg.Type = t
	}

	ctx, cancel, a, err := newAssistant(logger)
	if err != nil {
		return err
	}
	defer cancel()
	defer a.Close()

	return searchAndPrint(ctx, a, query, cfg, *asJSON, os.Stdout)
}

func searchAndPrint(ctx context.Context, b backend, query string, cfg schema.SearchConfig, asJSON bool, w io.Writer) error {
	res, err := b.Search(ctx, query, cfg)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResults(w, res)
	return nil
}

// printResults renders a search answer: synthesis first, sources after.
func printResults(w io.Writer, res schema.SearchResults) {
	if res.MainContent != "" {
		fmt.Fprintln(w, res.MainContent)
	}
	if len(res.Results) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, r := range res.Results {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, r.Title)
		fmt.Fprintf(w, "      %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(w, "      %s\n", r.Snippet)
		}
	}
}
