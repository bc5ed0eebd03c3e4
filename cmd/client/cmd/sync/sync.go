// cmd/client/cmd/sync/sync.go
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"invkeeper/internal/app/client"
	syncdomain "invkeeper/internal/domain/sync"
)

var (
	forceSync   bool
	syncStatus  bool
	retryFailed bool
	fullResync  bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Синхронизация локальных данных с сервером.

Один цикл: получение серверных изменений, обнаружение и разрешение
конфликтов, отправка очереди локальных событий, продвижение чекпоинтов.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		if retryFailed {
			return retryFailedEvents(app)
		}

		// Выполняем синхронизацию
		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация данных ===")

	if fullResync {
		fmt.Println("Сброс чекпоинтов, будет выполнена полная синхронизация...")
		if err := app.SyncService().ResetCheckpoints(); err != nil {
			return fmt.Errorf("ошибка сброса чекпоинтов: %w", err)
		}
	}

	fmt.Println("Проверка соединения с сервером...")
	if err := app.CheckConnection(ctx); err != nil {
		return fmt.Errorf("сервер недоступен: %v", err)
	}

	fmt.Println("Начало синхронизации...")

	var result *client.SyncResult
	var err error
	if forceSync {
		result, err = app.SyncService().ForceSync(ctx)
	} else {
		result, err = app.SyncService().Sync(ctx)
	}
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	fmt.Println()
	if result.Success {
		fmt.Println("✅ Синхронизация завершена!")
	} else {
		fmt.Println("⚠️  Синхронизация завершена с ошибками")
	}
	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Отправлено на сервер: %d событий\n", result.Uploaded)
	fmt.Printf("Получено с сервера: %d записей\n", result.Downloaded)

	if len(result.Resynced) > 0 {
		fmt.Printf("Полная пересинхронизация: %v\n", result.Resynced)
	}

	if result.Conflicts > 0 {
		fmt.Printf("Обнаружено конфликтов: %d\n", result.Conflicts)
		fmt.Printf("Разрешено автоматически: %d\n", result.Resolved)

		if result.Manual > 0 {
			fmt.Printf("%s Конфликтов, ожидающих решения: %d\n", color.YellowString("⚠️"), result.Manual)
			fmt.Println("   Используйте 'invkeeper conflicts list' для просмотра")
		}
	}

	if len(result.Errors) > 0 {
		fmt.Printf("Ошибок при синхронизации: %d\n", len(result.Errors))
		for i, syncErr := range result.Errors {
			if i < 3 { // Показываем только первые 3 ошибки
				fmt.Printf("  • %s: %s\n", syncErr.Operation, syncErr.Error)
			}
		}
		if len(result.Errors) > 3 {
			fmt.Printf("  ... и еще %d ошибок\n", len(result.Errors)-3)
		}
	}

	stats := app.SyncService().GetStats()
	fmt.Printf("Всего синхронизаций: %d\n", stats.TotalSyncs)
	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("Последняя успешная: %s\n",
			stats.LastSuccessful.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	stats := app.SyncService().GetStats()

	fmt.Println("📊 Статистика:")
	fmt.Printf("  Всего синхронизаций: %d\n", stats.TotalSyncs)
	fmt.Printf("  Успешных: %d\n", stats.TotalSyncs-stats.TotalErrors)
	fmt.Printf("  С ошибками: %d\n", stats.TotalErrors)
	fmt.Printf("  Отправлено на сервер: %d событий\n", stats.TotalUploaded)
	fmt.Printf("  Получено с сервера: %d записей\n", stats.TotalDownloaded)
	fmt.Printf("  Обнаружено конфликтов: %d\n", stats.TotalConflicts)
	fmt.Printf("  Разрешено конфликтов: %d\n", stats.TotalResolved)
	fmt.Printf("  Среднее время: %.2f сек\n", stats.AvgSyncDuration)

	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("\n⏰ Временные метки:\n")
		fmt.Printf("  Последняя успешная: %s\n",
			stats.LastSuccessful.Format("2006-01-02 15:04:05"))
		if !stats.LastFailed.IsZero() {
			fmt.Printf("  Последняя неудачная: %s\n",
				stats.LastFailed.Format("2006-01-02 15:04:05"))
		}
	}

	// Состояние очереди событий
	queueStats, err := app.Queue().Stats()
	if err == nil {
		fmt.Printf("\n📦 Очередь событий:\n")
		fmt.Printf("  Ожидают отправки: %d\n", queueStats[syncdomain.StatusPending])
		fmt.Printf("  Отправлено: %d\n", queueStats[syncdomain.StatusSynced])
		fmt.Printf("  С ошибками: %d\n", queueStats[syncdomain.StatusFailed])
		fmt.Printf("  В конфликте: %d\n", queueStats[syncdomain.StatusConflict])
	}

	// Проверяем соединение с сервером
	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err := app.CheckConnection(ctx); err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
	} else {
		fmt.Printf("✅ OK\n")
	}

	return nil
}

func retryFailedEvents(app *client.App) error {
	count, err := app.RetryFailedEvents()
	if err != nil {
		return fmt.Errorf("ошибка повтора событий: %w", err)
	}

	if count == 0 {
		fmt.Println("Нет событий для повтора")
		return nil
	}

	fmt.Printf("✅ %d событий возвращено в очередь\n", count)
	fmt.Println("Они будут отправлены при следующей синхронизации.")
	return nil
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "синхронизация без учета минимального интервала")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&retryFailed, "retry", false, "вернуть неудачные события в очередь")
	SyncCmd.Flags().BoolVar(&fullResync, "full", false, "сбросить чекпоинты и синхронизировать все заново")
}
