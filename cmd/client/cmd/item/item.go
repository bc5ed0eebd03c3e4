// cmd/client/cmd/item/item.go
package item

import (
	"github.com/spf13/cobra"
)

var ItemCmd = &cobra.Command{
	Use:   "item",
	Short: "Управление предметами инвентаря",
	Long: `Работа с предметами: создание, просмотр, изменение, перемещение
между контейнерами и локациями, привязка QR-кодов.

Все изменения сохраняются локально и синхронизируются с сервером
при следующем запуске 'invkeeper sync' или фоновой синхронизации.`,
}

func init() {
	ItemCmd.AddCommand(createCmd)
	ItemCmd.AddCommand(listCmd)
	ItemCmd.AddCommand(getCmd)
	ItemCmd.AddCommand(updateCmd)
	ItemCmd.AddCommand(deleteCmd)
	ItemCmd.AddCommand(moveCmd)
	ItemCmd.AddCommand(qrCmd)
}
