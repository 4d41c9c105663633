package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StorageRoot string
	LogDir      string

	RateLimit         int
	RateLimitInterval time.Duration

	YouTubeAPIKey string
	OpenAIAPIKey  string

	TranslationModel string
	TargetLanguage   string
	SpeechModel      string
	SpeechVoice      string

	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	AWSEndpoint  string
	S3Bucket     string
}

func LoadConfig() *Config {
	return &Config{
		ServerPort:      GetEnv("SERVER_PORT", "8080"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		StorageRoot: GetEnv("STORAGE_ROOT", "./storage"),
		LogDir:      GetEnv("LOG_DIR", "./logs"),

		RateLimit:         getEnvAsInt("RATE_LIMIT", 5),
		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 1*time.Second),

		YouTubeAPIKey: GetEnv("YOUTUBE_API_KEY", ""),
		OpenAIAPIKey:  GetEnv("OPENAI_API_KEY", ""),

		TranslationModel: GetEnv("TRANSLATION_MODEL", "gpt-4o-mini"),
		TargetLanguage:   GetEnv("TARGET_LANGUAGE", "English"),
		SpeechModel:      GetEnv("SPEECH_MODEL", "tts-1"),
		SpeechVoice:      GetEnv("SPEECH_VOICE", "alloy"),

		AWSAccessKey: GetEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey: GetEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSRegion:    GetEnv("AWS_REGION", "us-west-2"),
		AWSEndpoint:  GetEnv("AWS_ENDPOINT", ""),
		S3Bucket:     GetEnv("S3_BUCKET", "jmhudak-knowledge-collector"),
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return errors.New("server port is required")
	}
	if cfg.StorageRoot == "" {
		return errors.New("storage root is required")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if cfg.RateLimit <= 0 {
		return errors.New("rate limit must be greater than 0")
	}
	return nil
}
