package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/bookgraph/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple books from a file in parallel",
	Long: `Batch analyzes multiple books concurrently:
- Read book ids from input file (one per line, # starts a comment)
- Analyze books in parallel with configurable worker count
- Chunks of one book are still analyzed in order
- Write one graph JSON per book

Example:
  bookgraph batch ids.txt
  bookgraph batch ids.txt --concurrency 2 --output-dir ./graphs
  bookgraph batch ids.txt --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 4, "number of books analyzed at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./bookgraph-graphs", "output directory for graphs")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	workers := a.cfg.Concurrency.Workers

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Bookgraph Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s\n", a.providerLabel())
	fmt.Fprintf(os.Stderr, "\n")

	ids, err := worker.ReadIDsFromFile(file)
	if err != nil {
		return fmt.Errorf("read ids: %w", err)
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := validateID(id); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v, skipped\n", err)
			continue
		}
		valid = append(valid, id)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d book ids\n", len(valid))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing with %d workers...\n\n", workers)

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results := processor.ProcessIDs(ctx, valid)

	successCount := 0
	failureCount := len(valid) - len(results)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, result.Error)
			continue
		}

		path := filepath.Join(outputDir, sanitizeFilename(result.ID)+".json")
		if err := writeJSONFile(path, result.Graph); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d characters, %d links, %v)\n",
			result.ID, len(result.Graph.Nodes), len(result.Graph.Links), result.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d books\n", len(valid))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d books failed", failureCount)
	}
	return nil
}
