// cmd/client/cmd/location/location.go
package location

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
	name     string
	desc     string
	address  string
	parentID string
)

var LocationCmd = &cobra.Command{
	Use:   "location",
	Short: "Управление локациями",
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать локацию",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		if name == "" {
			return fmt.Errorf("флаг --name обязателен")
		}

		location := &inventory.Location{
			Name:        name,
			Description: desc,
			Address:     address,
			ParentID:    parentID,
		}

		event, err := app.Interceptor().Create(location)
		if err != nil {
			return fmt.Errorf("ошибка создания локации: %w", err)
		}

		fmt.Printf("✅ Локация '%s' создана (id: %s)\n", name, event.EntityID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать локации",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		snapshots, err := app.ListSnapshots(sync.EntityLocation, 0, 0)
		if err != nil {
			return fmt.Errorf("ошибка чтения локаций: %w", err)
		}

		if len(snapshots) == 0 {
			fmt.Println("Локаций пока нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tАДРЕС\tРОДИТЕЛЬ")
		for _, snap := range snapshots {
			var l inventory.Location
			if err := l.FromMap(snap.Data); err != nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", snap.ID, l.Name, l.Address, l.ParentID)
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить локацию",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if _, err := app.Interceptor().Delete(sync.EntityLocation, args[0]); err != nil {
			return fmt.Errorf("ошибка удаления локации: %w", err)
		}

		fmt.Printf("✅ Локация %s удалена\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&name, "name", "n", "", "название локации")
	createCmd.Flags().StringVar(&desc, "desc", "", "описание")
	createCmd.Flags().StringVar(&address, "address", "", "адрес")
	createCmd.Flags().StringVar(&parentID, "parent", "", "родительская локация")

	LocationCmd.AddCommand(createCmd)
	LocationCmd.AddCommand(listCmd)
	LocationCmd.AddCommand(deleteCmd)
}
