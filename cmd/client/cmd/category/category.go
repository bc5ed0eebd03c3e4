// cmd/client/cmd/category/category.go
package category

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
	icon     string
	hexColor string
	parentID string
)

var CategoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Управление категориями",
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать категорию",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		if name == "" {
			return fmt.Errorf("флаг --name обязателен")
		}

		category := &inventory.Category{
			Name:        name,
			Description: desc,
			Icon:        icon,
			Color:       hexColor,
			ParentID:    parentID,
		}

		event, err := app.Interceptor().Create(category)
		if err != nil {
			return fmt.Errorf("ошибка создания категории: %w", err)
		}

		fmt.Printf("✅ Категория '%s' создана (id: %s)\n", name, event.EntityID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать категории",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		snapshots, err := app.ListSnapshots(sync.EntityCategory, 0, 0)
		if err != nil {
			return fmt.Errorf("ошибка чтения категорий: %w", err)
		}

		if len(snapshots) == 0 {
			fmt.Println("Категорий пока нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tРОДИТЕЛЬ")
		for _, snap := range snapshots {
			var c inventory.Category
			if err := c.FromMap(snap.Data); err != nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", snap.ID, c.Name, c.ParentID)
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить категорию",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if _, err := app.Interceptor().Delete(sync.EntityCategory, args[0]); err != nil {
			return fmt.Errorf("ошибка удаления категории: %w", err)
		}

		fmt.Printf("✅ Категория %s удалена\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&name, "name", "n", "", "название категории")
	createCmd.Flags().StringVar(&desc, "desc", "", "описание")
	createCmd.Flags().StringVar(&icon, "icon", "", "имя иконки")
	createCmd.Flags().StringVar(&hexColor, "color", "", "цвет в hex, например #ff8800")
	createCmd.Flags().StringVar(&parentID, "parent", "", "родительская категория")

	CategoryCmd.AddCommand(createCmd)
	CategoryCmd.AddCommand(listCmd)
	CategoryCmd.AddCommand(deleteCmd)
}
