// cmd/client/cmd/item/get.go
package item

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать предмет",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		model, err := app.GetModel(sync.EntityItem, args[0])
		if err != nil {
			return fmt.Errorf("ошибка чтения предмета: %w", err)
		}

		item, ok := model.(*inventory.Item)
		if !ok {
			return fmt.Errorf("неожиданный тип сущности")
		}

		if getJSON {
			return json.NewEncoder(os.Stdout).Encode(item)
		}

		fmt.Printf("ID:          %s\n", item.ID)
		fmt.Printf("Название:    %s\n", item.Name)
		if item.Description != "" {
			fmt.Printf("Описание:    %s\n", item.Description)
		}
		fmt.Printf("Статус:      %s\n", item.Status.DisplayName())
		if item.SellingPrice > 0 {
			fmt.Printf("Цена:        %.2f\n", item.SellingPrice)
		}
		if item.PurchasePrice > 0 {
			fmt.Printf("Закупка:     %.2f\n", item.PurchasePrice)
		}
		if item.QRCode != "" {
			fmt.Printf("QR-код:      %s\n", item.QRCode)
		}
		if item.Number != "" {
			fmt.Printf("Номер:       %s\n", item.Number)
		}
		if item.CategoryID != "" {
			fmt.Printf("Категория:   %s\n", item.CategoryID)
		}
		if item.ContainerID != "" {
			fmt.Printf("Контейнер:   %s\n", item.ContainerID)
		}
		if item.LocationID != "" {
			fmt.Printf("Локация:     %s\n", item.LocationID)
		}

		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "вывод в формате JSON")
}
