package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veldt-group/boq-cli/internal/fetcher"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/parse"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the master material catalog",
}

// catalogImportCmd loads materials from an XLSX price book. Expected
// columns: code, name, category code, unit, supply cost, install cost.
var catalogImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import master materials from a price book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rows, err := fetcher.ReadCatalogXLSX(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		existing, err := st.ActiveCategories(ctx)
		if err != nil {
			return err
		}
		categoryByCode := make(map[string]string, len(existing))
		for _, c := range existing {
			categoryByCode[c.Code] = c.ID
		}

		var materials []model.MasterMaterial
		var newCategories []model.MaterialCategory
		for _, row := range rows {
			code := strings.TrimSpace(cell(row, 0))
			name := strings.TrimSpace(cell(row, 1))
			if code == "" || name == "" {
				continue
			}

			m := model.MasterMaterial{
				ID:   uuid.New().String(),
				Code: code,
				Name: name,
			}

			if catCode := strings.TrimSpace(cell(row, 2)); catCode != "" {
				id, ok := categoryByCode[catCode]
				if !ok {
					id = uuid.New().String()
					categoryByCode[catCode] = id
					newCategories = append(newCategories, model.MaterialCategory{
						ID: id, Code: catCode, Name: catCode,
					})
				}
				m.CategoryID = &id
			}

			if unit := strings.TrimSpace(cell(row, 3)); unit != "" {
				m.Unit = model.StringPtr(parse.StandardUnit(unit))
			}
			if v := parse.ParseRate(cell(row, 4)); v > 0 {
				m.StandardSupplyCost = &v
			}
			if v := parse.ParseRate(cell(row, 5)); v > 0 {
				m.StandardInstallCost = &v
			}

			materials = append(materials, m)
		}

		if len(newCategories) > 0 {
			if _, err := st.UpsertCategories(ctx, newCategories); err != nil {
				return err
			}
		}
		n, err := st.UpsertMaterials(ctx, materials)
		if err != nil {
			return err
		}

		fmt.Printf("imported %d materials, %d new categories\n", n, len(newCategories))
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active master materials",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		materials, err := st.ActiveMaterials(cmd.Context())
		if err != nil {
			return err
		}

		for _, m := range materials {
			unit := ""
			if m.Unit != nil {
				unit = *m.Unit
			}
			fmt.Printf("%-12s %-50s %-5s supply=%.2f install=%.2f\n",
				m.Code, m.Name, unit, m.SupplyCost(), m.InstallCost())
		}
		return nil
	},
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
