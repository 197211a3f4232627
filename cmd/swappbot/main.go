// Command swappbot runs the SwappBot HTTP service: the coding-helper chat
// engine, its chat log, and the account endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/huzaifa838/swappbot/common/environment"
	"github.com/huzaifa838/swappbot/common/version"
	"github.com/huzaifa838/swappbot/internal/swappbot/app"
	"github.com/huzaifa838/swappbot/internal/swappbot/auth"
	"github.com/huzaifa838/swappbot/internal/swappbot/observability"
)

func main() {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	fmt.Printf("SwappBot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	config := loadConfig()

	if config.WeatherAPIKey == "" {
		fmt.Fprintf(os.Stderr, "Warning: WEATHER_API_KEY is not set; weather replies will report an error\n")
	}

	bot, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize swappbot: %v\n", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running swappbot: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from the environment.
func loadConfig() *app.Config {
	return &app.Config{
		HTTPAddr:      environment.StringOr("HTTP_ADDR", ":8080"),
		DatabasePath:  environment.StringOr("DATABASE_PATH", "swappbot.db"),
		WeatherAPIKey: environment.StringOr("WEATHER_API_KEY", ""),
		PendingTTL:    environment.DurationOr("PENDING_TTL", 0),
		SessionTTL:    environment.DurationOr("SESSION_TTL", 0),
		SMTP: auth.SMTPConfig{
			Host:     environment.StringOr("SMTP_HOST", ""),
			Port:     environment.IntOr("SMTP_PORT", 587),
			Username: environment.StringOr("SMTP_USERNAME", ""),
			Password: environment.StringOr("SMTP_PASSWORD", ""),
			From:     environment.StringOr("SMTP_FROM", ""),
		},
	}
}
