package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldt-group/boq-cli/internal/fetcher"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/pipeline"
)

var (
	processUploadID string
	processMapping  string
	processAI       bool
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process one BOQ file end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		text, err := fetcher.Load(path)
		if err != nil {
			return err
		}

		opts := pipeline.Options{UseAI: processAI || cfg.Process.UseAI}
		mappingFile := processMapping
		if mappingFile == "" {
			mappingFile = cfg.Process.MappingFile
		}
		if mappingFile != "" {
			mappings, err := model.LoadMappings(mappingFile)
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

		uploadID := processUploadID
		if uploadID == "" {
			uploadID = uuid.New().String()
		}
		if _, err := st.CreateUpload(ctx, uploadID, filepath.Base(path)); err != nil {
			return err
		}

		summary, err := p.Process(ctx, uploadID, text, opts)
		if err != nil {
			zap.L().Error("processing failed", zap.String("upload_id", uploadID), zap.Error(err))
			return err
		}

		fmt.Printf("upload %s: %d items, %d matched, %d outliers, %d master materials updated\n",
			uploadID, summary.TotalItems, summary.MatchedItems, summary.OutlierItems, summary.MasterUpdated)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processUploadID, "upload-id", "", "upload ID (default: new UUID)")
	processCmd.Flags().StringVar(&processMapping, "mapping", "", "YAML column mapping file")
	processCmd.Flags().BoolVar(&processAI, "ai", false, "use AI extraction for unmapped sheets")
	rootCmd.AddCommand(processCmd)
}
