// Управление конфигурацией приложения из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Подхват файла .env при его наличии.
//   - Валидация обязательных переменных (BOT_TOKEN, DATABASE_URL).
//   - Преобразование типов данных из переменных окружения (string, int, bool).
//   - Маскировка секретных значений (tokens, secrets) в логах.
//   - Значения по умолчанию для расписания дайджеста и времени жизни сессий.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN"`

	DatabaseDSN string `env:"DATABASE_URL"`

	WebURLRaw     string `env:"WEB_URL"`
	WebURL        *url.URL
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	BindAddress   string `env:"BIND_ADDRESS"`

	DigestSchedule string `env:"DIGEST_SCHEDULE"`

	SessionTTLMinutes int `env:"SESSION_TTL"`

	ClearCompletedTasks bool `env:"CLEAR_COMPLETED_TASKS"`

	MetricsEnable bool `env:"METRICS"`
}

// ReadConfig загружает конфигурацию приложения из переменных окружения и выполняет валидацию. Возвращает структуру Config с загруженными параметрами. Если BOT_TOKEN или DATABASE_URL не заданы, приложение завершает работу с ошибкой. Обязательные переменные валидируются, типы данных преобразуются из строк, а секретные значения маскируются в логах. WEB_URL задается только для режима вебхука; при его отсутствии бот работает через long polling.
func ReadConfig() *Config {
	// .env рядом с бинарем, если есть
	godotenv.Load()

	config := &Config{}

	envConfig("env", config)

	// Check required envs
	if config.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	if config.DatabaseDSN == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if config.WebURLRaw != "" {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.BindAddress == "" {
		config.BindAddress = ":8080"
	}

	if config.DigestSchedule == "" {
		config.DigestSchedule = "0 20 * * *"
	}

	if config.SessionTTLMinutes <= 0 {
		config.SessionTTLMinutes = 10
	}

	return config
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]

		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
