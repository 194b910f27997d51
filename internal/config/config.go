package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば POSTGRES_* より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT検証シークレット（発行は外部）

	GoEnv        string // dev/prod
	FEURL        string // フロントURL（CORS）
	AssetBaseURL string // 商品画像の相対パスに付けるURL

	LogLevel  string
	LogFormat string // json/console

	Izipay Izipay

	UbigeoURL string
	UbigeoTTL time.Duration

	RedisAddr     string // 空ならメモリキャッシュ
	RedisPassword string
	RedisDB       int
}

// 決済ゲートウェイ
type Izipay struct {
	APIURL     string
	Username   string
	Password   string
	PublicKey  string
	HMACKey    string
	SuccessURL string // 決済後のリダイレクト先
	FailureURL string
}

// LoadEnvFile は .env があれば読む（無くてもエラーにしない）
func LoadEnvFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiDefault("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	ubigeoTTL, err := durationDefault("UBIGEO_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:        getenv("GO_ENV", "dev"),
		FEURL:        os.Getenv("FE_URL"),
		AssetBaseURL: strings.TrimRight(os.Getenv("ASSET_BASE_URL"), "/"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		Izipay: Izipay{
			APIURL:     getenv("IZIPAY_API_URL", "https://api.micuentaweb.pe"),
			Username:   os.Getenv("IZIPAY_USERNAME"),
			Password:   os.Getenv("IZIPAY_PASSWORD"),
			PublicKey:  os.Getenv("IZIPAY_PUBLIC_KEY"),
			HMACKey:    os.Getenv("IZIPAY_HMAC_KEY"),
			SuccessURL: os.Getenv("PAYMENT_SUCCESS_URL"),
			FailureURL: os.Getenv("PAYMENT_FAILURE_URL"),
		},

		UbigeoURL: getenv("UBIGEO_URL", "https://free.e-api.net.pe/ubigeos.json"),
		UbigeoTTL: ubigeoTTL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
	}

	//成功・失敗URLが未設定ならフロントのページ
	if cfg.Izipay.SuccessURL == "" && cfg.FEURL != "" {
		cfg.Izipay.SuccessURL = strings.TrimRight(cfg.FEURL, "/") + "/pago-exitoso"
	}
	if cfg.Izipay.FailureURL == "" && cfg.FEURL != "" {
		cfg.Izipay.FailureURL = strings.TrimRight(cfg.FEURL, "/") + "/pago-fallido"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresPassword == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FEURL == "" {
		return fmt.Errorf("FE_URL is required")
	}
	if c.IsProd() {
		if c.Izipay.Username == "" || c.Izipay.Password == "" {
			return fmt.Errorf("IZIPAY_USERNAME and IZIPAY_PASSWORD are required in prod")
		}
		if c.Izipay.HMACKey == "" {
			return fmt.Errorf("IZIPAY_HMAC_KEY is required in prod")
		}
	}
	return nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

// DSN は gorm(postgres) 用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は echo.Start に渡すアドレス（":8080"）
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

func atoiDefault(key string, def int) (int, error) {
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

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 24h): %w", key, err)
	}
	return d, nil
}
