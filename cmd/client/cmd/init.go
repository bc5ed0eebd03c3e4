// cmd/client/cmd/init.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"invkeeper/cmd/client/cmd/category"
	"invkeeper/cmd/client/cmd/conflicts"
	"invkeeper/cmd/client/cmd/container"
	"invkeeper/cmd/client/cmd/item"
	"invkeeper/cmd/client/cmd/location"
	"invkeeper/cmd/client/cmd/sync"
	"invkeeper/internal/app/client"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Инициализировать клиент InvKeeper",
	Long: `Команда init выполняет первоначальную настройку клиента:
	1. Создает локальную базу данных инвентаря
	2. Регистрирует идентификатор устройства
	3. Сохраняет токен доступа к серверу
	4. Проверяет соединение с сервером

Токен доступа выдается владельцем сервера (переменная API_TOKEN на сервере).
Без токена клиент работает только в офлайн-режиме.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		// Проверяем, не инициализирован ли уже клиент
		if app.IsInitialized() {
			fmt.Println("Клиент уже инициализирован.")
			fmt.Printf("Идентификатор устройства: %s\n", app.DeviceID())
			return nil
		}

		fmt.Println("=== Инициализация InvKeeper ===")
		fmt.Println()
		fmt.Printf("Идентификатор устройства: %s\n", app.DeviceID())
		fmt.Printf("Локальная база данных: %s\n", app.Config().DataPath)
		fmt.Println()

		// Запрашиваем токен доступа
		fmt.Print("Введите токен доступа (Enter — пропустить, офлайн-режим): ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения токена: %w", err)
		}
		fmt.Println()

		if len(token) > 0 {
			if err := app.SaveToken(string(token)); err != nil {
				return fmt.Errorf("ошибка сохранения токена: %w", err)
			}
			fmt.Println("✓ Токен сохранен")
		}

		// Проверяем соединение с сервером
		fmt.Println("Проверка соединения с сервером...")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("⚠️  Предупреждение: не удалось подключиться к серверу: %v\n", err)
			fmt.Println("Вы можете работать в офлайн-режиме, синхронизация выполнится позже.")
		} else {
			fmt.Println("✓ Соединение с сервером установлено")
		}

		if err := app.MarkInitialized(); err != nil {
			return fmt.Errorf("ошибка сохранения состояния: %w", err)
		}

		fmt.Println()
		fmt.Println("✅ Инициализация успешно завершена!")
		fmt.Println()
		fmt.Println("Что дальше:")
		fmt.Println("1. Создайте локацию: invkeeper location create --name \"Кладовка\"")
		fmt.Println("2. Добавьте первый предмет: invkeeper item create")
		fmt.Println("3. Синхронизируйтесь с сервером: invkeeper sync")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	// Команды работы с инвентарем
	rootCmd.AddCommand(item.ItemCmd)
	rootCmd.AddCommand(category.CategoryCmd)
	rootCmd.AddCommand(container.ContainerCmd)
	rootCmd.AddCommand(location.LocationCmd)

	// Синхронизация и конфликты
	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(conflicts.ConflictsCmd)
}
