// cmd/client/cmd/conflicts/conflicts.go
package conflicts

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	"invkeeper/internal/domain/sync"
)

var ConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Просмотр и разрешение конфликтов синхронизации",
	Long: `Конфликты возникают, когда одну и ту же сущность изменили
на разных устройствах между синхронизациями. Большинство конфликтов
разрешается автоматически; остальные ждут решения здесь.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать неразрешенные конфликты",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		conflicts, err := app.ListConflicts(true)
		if err != nil {
			return fmt.Errorf("ошибка чтения конфликтов: %w", err)
		}

		if len(conflicts) == 0 {
			fmt.Println("✅ Неразрешенных конфликтов нет")
			return nil
		}

		fmt.Printf("Неразрешенных конфликтов: %d\n\n", len(conflicts))
		for _, c := range conflicts {
			fmt.Printf("%s %s\n", color.RedString("✗"), color.New(color.Bold).Sprint(c.ID))
			fmt.Printf("  Тип:       %s\n", c.Type)
			fmt.Printf("  Сущность:  %s/%s\n", c.Entity, c.EntityID)
			fmt.Printf("  Обнаружен: %s\n", c.DetectedAt.Format("2006-01-02 15:04:05"))

			if local, err := json.Marshal(c.LocalData); err == nil && len(c.LocalData) > 0 {
				fmt.Printf("  Локально:  %s\n", color.YellowString(string(local)))
			}
			if server, err := json.Marshal(c.ServerData); err == nil && len(c.ServerData) > 0 {
				fmt.Printf("  На сервере: %s\n", color.CyanString(string(server)))
			}
			fmt.Println()
		}

		fmt.Println("Разрешить: invkeeper conflicts resolve <id> --use local|server")
		return nil
	},
}

var useVersion string

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Разрешить конфликт",
	Long: `Разрешение конфликта выбором победителя:
  --use local   оставить локальную версию и отправить ее на сервер
  --use server  принять серверную версию, локальная правка отбрасывается`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		var resolution sync.Resolution
		switch useVersion {
		case "local":
			resolution = sync.ResolutionLocal
		case "server":
			resolution = sync.ResolutionServer
		default:
			return fmt.Errorf("неверное значение --use: %s (ожидается local или server)", useVersion)
		}

		if err := app.ResolveConflict(cmd.Context(), args[0], resolution, nil); err != nil {
			return fmt.Errorf("ошибка разрешения конфликта: %w", err)
		}

		fmt.Printf("✅ Конфликт %s разрешен (%s)\n", args[0], useVersion)
		if resolution == sync.ResolutionLocal {
			fmt.Println("Локальная версия будет отправлена при следующей синхронизации.")
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&useVersion, "use", "", "победившая версия: local или server")
	_ = resolveCmd.MarkFlagRequired("use")

	ConflictsCmd.AddCommand(listCmd)
	ConflictsCmd.AddCommand(resolveCmd)
}
