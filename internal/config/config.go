package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type PaystackCfg struct {
	TestSecretKey string
	LiveSecretKey string
	TestMode      bool
	SendInvoices  bool
	SendSMS       bool
}

type SecurityCfg struct {
	AdminToken string // guards the dashboard refund API
}

type Cfg struct {
	App      AppCfg
	DB       DBCfg
	Redis    RedisCfg
	Paystack PaystackCfg
	Sec      SecurityCfg
}

// SecretKey returns the Paystack secret key for the given mode.
func (c PaystackCfg) SecretKey(testMode bool) string {
	if testMode {
		return strings.TrimSpace(c.TestSecretKey)
	}
	return strings.TrimSpace(c.LiveSecretKey)
}

func Load() Cfg {
	// 1) Load .env into process env (if file exists)
	_ = godotenv.Load()

	// 2) Read from env via viper
	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("PAYSTACK_TEST_MODE", true)
	viper.SetDefault("PAYSTACK_SEND_INVOICES", false)
	viper.SetDefault("PAYSTACK_SEND_SMS", false)
	viper.SetDefault("ADMIN_TOKEN", "")

	cfg := Cfg{
		App: AppCfg{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Paystack: PaystackCfg{
			TestSecretKey: viper.GetString("PAYSTACK_TEST_SECRET_KEY"),
			LiveSecretKey: viper.GetString("PAYSTACK_LIVE_SECRET_KEY"),
			TestMode:      viper.GetBool("PAYSTACK_TEST_MODE"),
			SendInvoices:  viper.GetBool("PAYSTACK_SEND_INVOICES"),
			SendSMS:       viper.GetBool("PAYSTACK_SEND_SMS"),
		},
		Sec: SecurityCfg{
			AdminToken: strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
		},
	}

	// 3) Fail fast on required settings
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Paystack.SecretKey(cfg.Paystack.TestMode) == "" {
		log.Fatal().Msg("a Paystack secret key is required for the active mode")
	}

	return cfg
}
