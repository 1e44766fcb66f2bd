package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/bookgraph/internal/graph"
	"github.com/ppiankov/bookgraph/internal/model"
)

var (
	analyzeJSON    string
	analyzeTop     int
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Build the character graph of a single book",
	Long: `Analyze a single book:
- Fetch the plain text from Project Gutenberg
- Split the first analysis.max_chars characters into chunks
- Ask the configured LLM for characters and interactions per chunk
- Merge the answers into one graph

The graph is printed as a ranking plus per-character statistics; use --json
to keep the full graph.

Example:
  bookgraph analyze 1513
  bookgraph analyze 1513 --json romeo.json --top 20`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "write the graph as JSON to this path")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 10, "number of characters to list (0 for all)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "timeout for the whole analysis")
	analyzeCmd.Flags().String("provider", "", "LLM provider (groq, openai, anthropic, ollama)")
	analyzeCmd.Flags().String("model", "", "LLM model name")
	analyzeCmd.Flags().Int("max-chars", 0, "characters of the book to analyze")
	analyzeCmd.Flags().Int("chunk-size", 0, "characters per chunk")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := validateID(id); err != nil {
		return err
	}
	bindAnalysisFlags(cmd)

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Bookgraph Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Book:        %s\n", id)
	fmt.Fprintf(os.Stderr, "  LLM:         %s\n", a.providerLabel())
	fmt.Fprintf(os.Stderr, "  Max chars:   %d\n", a.cfg.Analysis.MaxChars)
	fmt.Fprintf(os.Stderr, "  Chunk size:  %d\n", a.cfg.Analysis.ChunkSize)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	start := time.Now()
	g, err := a.pipeline.AnalyzeBook(ctx, id)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Analyzed in %v: %d characters, %d links\n\n",
		time.Since(start).Round(time.Millisecond), len(g.Nodes), len(g.Links))

	if analyzeJSON != "" {
		if err := writeJSONFile(analyzeJSON, g); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Graph written to %s\n\n", analyzeJSON)
	}

	return printGraph(g, analyzeTop)
}

// bindAnalysisFlags copies explicitly set flags over the configuration
func bindAnalysisFlags(cmd *cobra.Command) {
	for flag, key := range map[string]string{
		"provider":   "llm.provider",
		"model":      "llm.model",
		"max-chars":  "analysis.max_chars",
		"chunk-size": "analysis.chunk_size",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
}

func printGraph(g *model.Graph, top int) error {
	stats := graph.DeriveStats(g)
	byID := make(map[string]model.CharacterStats, len(stats))
	for _, s := range stats {
		byID[s.ID] = s
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tCHARACTER\tMENTIONS\tINTERACTIONS\tAVG SENTIMENT")
	for i, entry := range g.Ranking {
		if top > 0 && i >= top {
			break
		}
		s := byID[entry.ID]
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", i+1, entry.ID, entry.Count, s.Interactions, formatSentiment(s.AvgSentiment))
	}
	return w.Flush()
}

func formatSentiment(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f", *v)
}
