// cmd/client/cmd/item/move.go
package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/sync"
)

var (
	moveContainer string
	moveLocation  string
)

var moveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Переместить предмет",
	Long: `Перемещение предмета в другой контейнер и/или локацию.
При одновременном перемещении с разных устройств побеждает
более позднее.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if moveContainer == "" && moveLocation == "" {
			return fmt.Errorf("укажите --container и/или --location")
		}

		if _, err := app.Interceptor().Move(sync.EntityItem, args[0], moveContainer, moveLocation); err != nil {
			return fmt.Errorf("ошибка перемещения предмета: %w", err)
		}

		fmt.Printf("✅ Предмет %s перемещен\n", args[0])
		return nil
	},
}

func init() {
	moveCmd.Flags().StringVar(&moveContainer, "container", "", "целевой контейнер")
	moveCmd.Flags().StringVar(&moveLocation, "location", "", "целевая локация")
}
