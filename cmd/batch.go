package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veldt-group/boq-cli/internal/fetcher"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/pipeline"
)

var (
	batchMapping     string
	batchAI          bool
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-dir>...",
	Short: "Process multiple BOQ files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		paths, err := expandBatchArgs(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.New("batch: no BOQ files found")
		}

		opts := pipeline.Options{UseAI: batchAI || cfg.Process.UseAI}
		if batchMapping != "" {
			mappings, err := model.LoadMappings(batchMapping)
			if err != nil {
				return err
			}
			opts.Mappings = mappings
		}

		p, st, err := initProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentUploads
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, path := range paths {
			g.Go(func() error {
				text, err := fetcher.Load(path)
				if err != nil {
					return err
				}

				uploadID := uuid.New().String()
				if _, err := st.CreateUpload(gctx, uploadID, filepath.Base(path)); err != nil {
					return err
				}

				summary, err := p.Process(gctx, uploadID, text, opts)
				if err != nil {
					// The upload is already marked failed; keep the
					// batch going for the remaining files.
					zap.L().Error("batch file failed",
						zap.String("file", path),
						zap.String("upload_id", uploadID),
						zap.Error(err))
					return nil
				}

				fmt.Printf("%s → upload %s: %d items, %d matched\n",
					filepath.Base(path), uploadID, summary.TotalItems, summary.MatchedItems)
				return nil
			})
		}

		return g.Wait()
	},
}

// expandBatchArgs flattens directory arguments into the BOQ files they
// contain. Non-directory arguments pass through untouched so unusual
// extensions can still be processed explicitly.
func expandBatchArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: stat %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read dir %s", arg)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".xlsx", ".csv", ".txt":
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchMapping, "mapping", "", "YAML column mapping file")
	batchCmd.Flags().BoolVar(&batchAI, "ai", false, "use AI extraction for unmapped sheets")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent uploads (default from config)")
	rootCmd.AddCommand(batchCmd)
}
