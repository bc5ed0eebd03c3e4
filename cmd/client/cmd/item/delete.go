// cmd/client/cmd/item/delete.go
package item

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/sync"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить предмет",
	Long: `Помечает предмет удаленным локально. На сервере предмет будет
удален при следующей синхронизации. Если предмет тем временем изменили
с другого устройства, удаление может превратиться в конфликт.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if !deleteYes {
			fmt.Printf("Удалить предмет %s? [y/N]: ", args[0])
			var answer string
			fmt.Scanln(&answer)
			if strings.ToLower(answer) != "y" {
				fmt.Println("Отменено")
				return nil
			}
		}

		event, err := app.Interceptor().Delete(sync.EntityItem, args[0])
		if err != nil {
			return fmt.Errorf("ошибка удаления предмета: %w", err)
		}
		if event == nil {
			fmt.Println("Предмет уже удален")
			return nil
		}

		fmt.Printf("✅ Предмет %s удален\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "не спрашивать подтверждение")
}
