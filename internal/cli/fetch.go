package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	fetchOut      string
	fetchMetadata bool
	fetchTimeout  time.Duration
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Download the text or catalog metadata of a book",
	Long: `Fetch the plain text of a Gutenberg book without analyzing it.

Example:
  bookgraph fetch 1513
  bookgraph fetch 1513 --out romeo.txt
  bookgraph fetch 1513 --metadata`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "write to file instead of stdout")
	fetchCmd.Flags().BoolVar(&fetchMetadata, "metadata", false, "fetch catalog metadata as JSON instead of the text")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 2*time.Minute, "timeout for the download")
}

func runFetch(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := validateID(id); err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if fetchMetadata {
		meta, err := a.pipeline.FetchMetadata(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch metadata: %w", err)
		}
		if fetchOut == "" {
			return encodeJSON(os.Stdout, meta)
		}
		if err := writeJSONFile(fetchOut, meta); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Metadata written to %s\n", fetchOut)
		return nil
	}

	book, err := a.pipeline.FetchBook(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}

	if fetchOut == "" {
		_, err := fmt.Fprint(os.Stdout, book.Content)
		return err
	}

	if err := os.WriteFile(fetchOut, []byte(book.Content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fetchOut, err)
	}
	fmt.Fprintf(os.Stderr, "✓ %s (%d bytes) written to %s\n", book.SourceURL, len(book.Content), fetchOut)
	return nil
}
