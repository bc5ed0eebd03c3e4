// cmd/client/cmd/container/container.go
package container

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

var (
	name       string
	desc       string
	qrCode     string
	locationID string
)

var ContainerCmd = &cobra.Command{
	Use:   "container",
	Short: "Управление контейнерами",
	Long: `Контейнеры — коробки, стеллажи и ящики, в которых лежат предметы.
Контейнер привязан к локации и может перемещаться между локациями
вместе с содержимым.`,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать контейнер",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		if name == "" {
			return fmt.Errorf("флаг --name обязателен")
		}

		container := &inventory.Container{
			Name:        name,
			Description: desc,
			QRCode:      qrCode,
			LocationID:  locationID,
		}

		event, err := app.Interceptor().Create(container)
		if err != nil {
			return fmt.Errorf("ошибка создания контейнера: %w", err)
		}

		fmt.Printf("✅ Контейнер '%s' создан (id: %s)\n", name, event.EntityID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать контейнеры",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		snapshots, err := app.ListSnapshots(sync.EntityContainer, 0, 0)
		if err != nil {
			return fmt.Errorf("ошибка чтения контейнеров: %w", err)
		}

		if len(snapshots) == 0 {
			fmt.Println("Контейнеров пока нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tQR\tЛОКАЦИЯ")
		for _, snap := range snapshots {
			var c inventory.Container
			if err := c.FromMap(snap.Data); err != nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", snap.ID, c.Name, c.QRCode, c.LocationID)
		}
		return w.Flush()
	},
}

var moveLocation string

var moveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Переместить контейнер в другую локацию",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		if moveLocation == "" {
			return fmt.Errorf("флаг --location обязателен")
		}

		if _, err := app.Interceptor().Move(sync.EntityContainer, args[0], "", moveLocation); err != nil {
			return fmt.Errorf("ошибка перемещения контейнера: %w", err)
		}

		fmt.Printf("✅ Контейнер %s перемещен в локацию %s\n", args[0], moveLocation)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить контейнер",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if _, err := app.Interceptor().Delete(sync.EntityContainer, args[0]); err != nil {
			return fmt.Errorf("ошибка удаления контейнера: %w", err)
		}

		fmt.Printf("✅ Контейнер %s удален\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&name, "name", "n", "", "название контейнера")
	createCmd.Flags().StringVar(&desc, "desc", "", "описание")
	createCmd.Flags().StringVar(&qrCode, "qr", "", "QR-код контейнера")
	createCmd.Flags().StringVar(&locationID, "location", "", "локация контейнера")
	moveCmd.Flags().StringVar(&moveLocation, "location", "", "целевая локация")

	ContainerCmd.AddCommand(createCmd)
	ContainerCmd.AddCommand(listCmd)
	ContainerCmd.AddCommand(moveCmd)
	ContainerCmd.AddCommand(deleteCmd)
}
