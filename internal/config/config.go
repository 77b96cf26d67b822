package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string
	DBMaxOpenConns   int
	DBMaxIdleConns   int

	JWTSecret string // JWT署名シークレット

	ShippingFee     decimal.Decimal // 注文ごとの送料（固定）
	CheckoutTimeout time.Duration   // 注文系トランザクションの上限

	LogLevel string

	KafkaBrokers    []string // 空なら通知しない
	KafkaOrderTopic string

	OTLPEndpoint string // 空ならトレースを出さない

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := atoiOr("DB_MAX_OPEN_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiOr("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}

	fee, err := decimal.NewFromString(getenv("SHIPPING_FEE", "50"))
	if err != nil {
		return Config{}, fmt.Errorf("SHIPPING_FEE must be number: %w", err)
	}
	if fee.IsNegative() {
		return Config{}, fmt.Errorf("SHIPPING_FEE must not be negative")
	}

	timeout, err := time.ParseDuration(getenv("CHECKOUT_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("CHECKOUT_TIMEOUT must be duration: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("CHECKOUT_TIMEOUT must be positive")
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "marketplace"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		DBMaxOpenConns:   maxOpen,
		DBMaxIdleConns:   maxIdle,

		JWTSecret: os.Getenv("JWT_SECRET"),

		ShippingFee:     fee,
		CheckoutTimeout: timeout,

		LogLevel: getenv("LOG_LEVEL", "info"),

		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: getenv("KAFKA_ORDER_TOPIC", "order-events"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// DSN は DATABASE_URL か POSTGRES_* から接続文字列を作る
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は ":8080" 形式
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
