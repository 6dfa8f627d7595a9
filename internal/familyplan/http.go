// HTTP-слой приложения: эндпоинт вебхука Telegram, проверка здоровья и метрики.
//
// Основные возможности:
//   - Прием обновлений Telegram через вебхук с проверкой секретного токена.
//   - Эндпоинт /healthz с проверкой соединения с базой данных.
//   - Метрики Prometheus на /metrics.
package familyplan

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const WebhookPath = "/webhook"

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Server собирает echo-сервер приложения. Канал updates передается только в режиме вебхука; при nil эндпоинт вебхука не регистрируется и сервер несет только служебные маршруты.
//
// Параметры:
//   - db: экземпляр gorm.DB для проверки здоровья.
//   - cfg: конфигурация приложения.
//   - updates: канал, в который складываются декодированные обновления Telegram.
//
// Возвращает:
//   - *echo.Echo: собранный сервер; запуск и остановка на стороне вызывающего.
func Server(db *gorm.DB, cfg *config.Config, updates chan<- tgbotapi.Update) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.MetricsEnable {
		e.Use(echoprometheus.NewMiddleware("familyplan"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	e.GET("/healthz", func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	if updates != nil {
		e.POST(WebhookPath, webhookHandler(cfg, updates))
	}

	return e
}

// webhookHandler декодирует обновление Telegram и передает его в канал обработки. Запросы с неверным секретным токеном отклоняются.
func webhookHandler(cfg *config.Config, updates chan<- tgbotapi.Update) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cfg.WebhookSecret != "" && c.Request().Header.Get(secretTokenHeader) != cfg.WebhookSecret {
			return c.NoContent(http.StatusUnauthorized)
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
			slog.Warn("Decode webhook update", "err", err)
			return c.NoContent(http.StatusBadRequest)
		}

		updates <- update
		return c.NoContent(http.StatusOK)
	}
}
