package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Firebase / FCM. FirebaseServiceAccount carrega o JSON completo da
	// service account; na falta dele, os campos FCM* discretos são usados.
	FirebaseServiceAccount string
	FCMProjectID           string
	FCMPrivateKey          string
	FCMClientEmail         string

	// Fila de notificações
	FilaLimite int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  Info: Ficheiro .env não encontrado ou não pôde ser carregado. Lendo variáveis de ambiente do sistema.")
	}

	return &Config{
		// Server
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Firebase
		FirebaseServiceAccount: os.Getenv("FIREBASE_SERVICE_ACCOUNT"),
		FCMProjectID:           getEnvWithDefault("FCM_PROJECT_ID", "caremind-29a5d"),
		FCMPrivateKey:          os.Getenv("FCM_PRIVATE_KEY"),
		FCMClientEmail:         os.Getenv("FCM_CLIENT_EMAIL"),

		// Fila
		FilaLimite: getEnvInt("FILA_LIMITE", 100),
	}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate valida se todas as configurações obrigatórias estão presentes
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.FirebaseServiceAccount == "" && (c.FCMPrivateKey == "" || c.FCMClientEmail == "") {
		return fmt.Errorf("FCM credentials are required: set FIREBASE_SERVICE_ACCOUNT or FCM_PRIVATE_KEY + FCM_CLIENT_EMAIL")
	}

	return nil
}
