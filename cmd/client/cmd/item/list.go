// cmd/client/cmd/item/list.go
package item

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

var (
	listLimit  int
	listOffset int
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать список предметов",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		snapshots, err := app.ListSnapshots(sync.EntityItem, listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("ошибка чтения предметов: %w", err)
		}

		if listJSON {
			return json.NewEncoder(os.Stdout).Encode(snapshots)
		}

		if len(snapshots) == 0 {
			fmt.Println("Предметов пока нет. Создайте первый: invkeeper item create")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tСТАТУС\tЦЕНА\tСИНХР")
		for _, snap := range snapshots {
			var item inventory.Item
			if err := item.FromMap(snap.Data); err != nil {
				continue
			}

			syncMark := color.GreenString("✓")
			if snap.Dirty {
				syncMark = color.YellowString("●")
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
				snap.ID, item.Name, colorStatus(item.Status), item.SellingPrice, syncMark)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nВсего: %d\n", len(snapshots))
		return nil
	},
}

func colorStatus(s inventory.ItemStatus) string {
	switch s {
	case inventory.StatusAvailable:
		return color.GreenString(s.DisplayName())
	case inventory.StatusReserved:
		return color.YellowString(s.DisplayName())
	case inventory.StatusSold:
		return color.RedString(s.DisplayName())
	default:
		return s.DisplayName()
	}
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "максимум записей")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "смещение")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "вывод в формате JSON")
}
