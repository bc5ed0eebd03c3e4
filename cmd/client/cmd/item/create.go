// cmd/client/cmd/item/create.go
package item

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/inventory"
)

var (
	itemName      string
	description   string
	status        string
	sellingPrice  float64
	purchasePrice float64
	qrCode        string
	number        string
	categoryID    string
	containerID   string
	locationID    string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать новый предмет",
	Long: `Создание предмета инвентаря.

Статусы: available (доступен), reserved (зарезервирован), sold (продан).
Если статус не указан, предмет создается доступным.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		// Запрашиваем название, если оно не передано флагом
		if itemName == "" {
			fmt.Print("Название предмета: ")
			scanner := bufio.NewScanner(os.Stdin)
			if scanner.Scan() {
				itemName = scanner.Text()
			}
			if itemName == "" {
				return fmt.Errorf("название предмета обязательно")
			}
		}

		if status == "" {
			status = string(inventory.StatusAvailable)
		}

		item := &inventory.Item{
			Name:          itemName,
			Description:   description,
			Status:        inventory.ItemStatus(status),
			SellingPrice:  sellingPrice,
			PurchasePrice: purchasePrice,
			QRCode:        qrCode,
			Number:        number,
			CategoryID:    categoryID,
			ContainerID:   containerID,
			LocationID:    locationID,
		}

		event, err := app.Interceptor().Create(item)
		if err != nil {
			return fmt.Errorf("ошибка создания предмета: %w", err)
		}

		fmt.Printf("✅ Предмет '%s' создан (id: %s)\n", itemName, event.EntityID)
		fmt.Println("Изменение будет отправлено на сервер при следующей синхронизации.")

		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&itemName, "name", "n", "", "название предмета")
	createCmd.Flags().StringVar(&description, "desc", "", "описание предмета")
	createCmd.Flags().StringVarP(&status, "status", "s", "", "статус (available, reserved, sold)")
	createCmd.Flags().Float64Var(&sellingPrice, "price", 0, "цена продажи")
	createCmd.Flags().Float64Var(&purchasePrice, "purchase-price", 0, "цена покупки")
	createCmd.Flags().StringVar(&qrCode, "qr", "", "QR-код предмета")
	createCmd.Flags().StringVar(&number, "number", "", "инвентарный номер")
	createCmd.Flags().StringVar(&categoryID, "category", "", "идентификатор категории")
	createCmd.Flags().StringVar(&containerID, "container", "", "идентификатор контейнера")
	createCmd.Flags().StringVar(&locationID, "location", "", "идентификатор локации")
}
