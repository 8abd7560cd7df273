package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/store"
)

var uploadsStatus string

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		uploads, err := st.ListUploads(cmd.Context(), store.UploadFilter{
			Status: model.UploadStatus(uploadsStatus),
		})
		if err != nil {
			return err
		}

		for _, u := range uploads {
			fmt.Printf("%-36s %-11s items=%-5d matched=%-5d %s\n",
				u.ID, u.Status, u.TotalItems, u.MatchedItems, u.FileName)
		}
		return nil
	},
}

var uploadShowCmd = &cobra.Command{
	Use:   "upload <id>",
	Short: "Show one upload and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		u, err := st.GetUpload(ctx, args[0])
		if err != nil {
			return err
		}
		if u == nil {
			return eris.Errorf("upload not found: %s", args[0])
		}

		fmt.Printf("%s  %s  status=%s items=%d matched=%d master_updated=%d\n",
			u.ID, u.FileName, u.Status, u.TotalItems, u.MatchedItems, u.MasterUpdated)
		if u.Error != "" {
			fmt.Printf("error: %s\n", u.Error)
		}

		items, err := st.ItemsForUpload(ctx, u.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			marker := " "
			if it.IsOutlier {
				marker = "!"
			}
			fmt.Printf("%s %4d %-10s %-60s qty=%-10.2f rate=%-10.2f conf=%.2f\n",
				marker, it.RowNumber, it.ItemCode, truncate(it.Description, 60),
				it.QuantityOr(0), it.TotalRateOr(0), it.MatchConfidence)
		}
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	uploadsCmd.Flags().StringVar(&uploadsStatus, "status", "", "filter by status (pending|processing|completed|failed)")
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(uploadShowCmd)
}
