package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// seeded admin credentials
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminRole     string

	JWTSecret           string
	JWTAccessTTLMinutes int

	// magic link login
	FrontendOrigin  string
	MagicLinkTTLMin int

	// assignment lifecycle
	CooldownDays  int
	DeadlineHours int

	// uploads
	UploadDriver string // "disk" or "s3"
	UploadsDir   string
	S3Region     string
	S3Bucket     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string

	// outbound mail
	MailDriver string // "log" or "smtp"
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	MailFrom   string

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),
		AdminRole:     getEnv("ADMIN_ROLE", "admin"),

		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		FrontendOrigin:  getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		MagicLinkTTLMin: getEnvInt("MAGIC_LINK_TTL_MINUTES", 15),

		CooldownDays:  getEnvInt("COOLDOWN_DAYS", 3),
		DeadlineHours: getEnvInt("DEADLINE_HOURS", 6),

		UploadDriver: getEnv("UPLOAD_DRIVER", "disk"),
		UploadsDir:   getEnv("UPLOADS_DIR", "uploads"),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "taskhub-uploads"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),

		MailDriver: getEnv("MAIL_DRIVER", "log"),
		SMTPHost:   getEnv("SMTP_HOST", ""),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		MailFrom:   getEnv("MAIL_FROM", "no-reply@writersinn.local"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func (c Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkTTLMin) * time.Minute
}

func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownDays) * 24 * time.Hour
}

func (c Config) DeadlineOffset() time.Duration {
	return time.Duration(c.DeadlineHours) * time.Hour
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
