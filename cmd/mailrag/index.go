package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/mailrag/internal/domain/batch"
	ingestuc "github.com/kailas-cloud/mailrag/internal/usecase/ingest"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.jsonl>...",
	Short: "Embed chunk files and write them to the document store",
	Long: `index reads JSON-lines chunk files, one chunk per line:

  {"id": "...", "content": "...", "source": "report.pdf", "page": 3,
   "is_image": false, "image": "<base64>"}

id is optional and derived from source, page and content when missing. Use "-"
to read standard input. With the redis driver the search index is created
first; --recreate drops it before loading.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recreate, _ := cmd.Flags().GetBool("recreate")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		return runIndex(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, recreate, batchSize)
	},
}

func init() {
	indexCmd.Flags().Bool("recreate", false, "drop the search index before loading (redis driver)")
	indexCmd.Flags().Int("batch-size", 0, "chunks per embedding call (default: index.max_batch_size)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context, stdin io.Reader, stdout io.Writer, files []string, recreate bool, batchSize int) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if recreate && a.chunks != nil {
		if err := a.chunks.DropIndex(ctx); err != nil {
			return err
		}
		logger.Info("Chunk index dropped")
	}
	if err := a.ensureIndex(ctx); err != nil {
		return err
	}

	svc := a.ingest
	if batchSize > 0 {
		svc = svc.WithMaxBatchSize(batchSize)
	}

	var total dombatch.Summary
	for _, name := range files {
		sum, err := indexFile(ctx, svc, stdin, name)
		if err != nil {
			return err
		}
		total.OK += sum.OK
		total.Failed += sum.Failed
		fmt.Fprintf(stdout, "%s: %d indexed, %d failed\n", name, sum.OK, sum.Failed)
	}

	fmt.Fprintf(stdout, "total: %d indexed, %d failed\n", total.OK, total.Failed)
	if total.Failed > 0 {
		return fmt.Errorf("%d of %d chunks failed", total.Failed, total.Total())
	}
	return nil
}

func indexFile(ctx context.Context, svc *ingestuc.Service, stdin io.Reader, name string) (dombatch.Summary, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(filepath.Clean(name))
		if err != nil {
			return dombatch.Summary{}, fmt.Errorf("open %s: %w", name, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	records, lineErrs, err := ingestuc.ReadRecords(r)
	if err != nil {
		return dombatch.Summary{}, fmt.Errorf("read %s: %w", name, err)
	}
	for _, le := range lineErrs {
		logger.Warn("Skipping malformed line", zap.String("file", name), zap.Error(le))
	}

	results := svc.Ingest(ctx, records)
	for _, res := range results {
		if res.Status() == dombatch.StatusError {
			logger.Warn("Chunk failed", zap.String("file", name), zap.String("id", res.ID()), zap.Error(res.Err()))
		}
	}

	sum := dombatch.Summarize(results)
	sum.Failed += len(lineErrs)
	return sum, nil
}
