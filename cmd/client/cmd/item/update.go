// cmd/client/cmd/item/update.go
package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/sync"
)

var (
	updName     string
	updDesc     string
	updStatus   string
	updPrice    float64
	updPurchase float64
	updNumber   string
	updCategory string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить предмет",
	Long: `Частичное изменение предмета: меняются только поля, переданные
флагами. Прежние значения запоминаются в событии — по ним при
синхронизации определяются пересекающиеся правки с других устройств.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		changes := map[string]any{}
		if cmd.Flags().Changed("name") {
			changes["name"] = updName
		}
		if cmd.Flags().Changed("desc") {
			changes["description"] = updDesc
		}
		if cmd.Flags().Changed("status") {
			changes["status"] = updStatus
		}
		if cmd.Flags().Changed("price") {
			changes["sellingPrice"] = updPrice
		}
		if cmd.Flags().Changed("purchase-price") {
			changes["purchasePrice"] = updPurchase
		}
		if cmd.Flags().Changed("number") {
			changes["number"] = updNumber
		}
		if cmd.Flags().Changed("category") {
			changes["categoryId"] = updCategory
		}

		if len(changes) == 0 {
			return fmt.Errorf("не указано ни одного изменения")
		}

		if _, err := app.Interceptor().Update(sync.EntityItem, args[0], changes); err != nil {
			return fmt.Errorf("ошибка изменения предмета: %w", err)
		}

		fmt.Printf("✅ Предмет %s изменен (%d полей)\n", args[0], len(changes))
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updName, "name", "n", "", "новое название")
	updateCmd.Flags().StringVar(&updDesc, "desc", "", "новое описание")
	updateCmd.Flags().StringVarP(&updStatus, "status", "s", "", "новый статус (available, reserved, sold)")
	updateCmd.Flags().Float64Var(&updPrice, "price", 0, "новая цена продажи")
	updateCmd.Flags().Float64Var(&updPurchase, "purchase-price", 0, "новая цена покупки")
	updateCmd.Flags().StringVar(&updNumber, "number", "", "новый инвентарный номер")
	updateCmd.Flags().StringVar(&updCategory, "category", "", "новая категория")
}
