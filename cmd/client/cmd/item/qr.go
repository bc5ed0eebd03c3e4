// cmd/client/cmd/item/qr.go
package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/sync"
)

var qrCmd = &cobra.Command{
	Use:   "qr <id> <code>",
	Short: "Привязать QR-код к предмету",
	Long: `Привязка QR-кода к предмету. QR-код уникален: если тот же код
привязан к другой сущности на другом устройстве, синхронизация
оставит решение за пользователем.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if _, err := app.Interceptor().AssignQR(sync.EntityItem, args[0], args[1]); err != nil {
			return fmt.Errorf("ошибка привязки QR-кода: %w", err)
		}

		fmt.Printf("✅ QR-код %s привязан к предмету %s\n", args[1], args[0])
		return nil
	},
}
