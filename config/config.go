package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var once sync.Once

var durationDefaults = map[string]time.Duration{
	"sweep_interval":  3 * time.Minute,
	"fetch_timeout":   20 * time.Second,
	"fetch_cache_ttl": time.Minute,
	"alert_cooldown":  2 * time.Hour,
}

// zeroDurations may be set to 0 to turn the feature off.
var zeroDurations = map[string]bool{
	"fetch_cache_ttl": true,
}

func InitConfig() {
	once.Do(func() {
		// a missing .env is fine, the process environment still applies
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("sweep_interval", "SWEEP_INTERVAL")
		viper.BindEnv("fetch_timeout", "FETCH_TIMEOUT")
		viper.BindEnv("fetch_rate_per_second", "FETCH_RATE_PER_SECOND")
		viper.BindEnv("fetch_cache_ttl", "FETCH_CACHE_TTL")
		viper.BindEnv("alert_cooldown", "ALERT_COOLDOWN")
		viper.BindEnv("cooldown_key", "COOLDOWN_KEY")
		viper.BindEnv("strict_extraction", "STRICT_EXTRACTION")
		viper.BindEnv("dextools_base_url", "DEXTOOLS_BASE_URL")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("db_path", "/app/data/crypto_monitor.db")
		viper.SetDefault("sweep_interval", durationDefaults["sweep_interval"].String())
		viper.SetDefault("fetch_timeout", durationDefaults["fetch_timeout"].String())
		viper.SetDefault("fetch_rate_per_second", 2.0)
		viper.SetDefault("fetch_cache_ttl", durationDefaults["fetch_cache_ttl"].String())
		viper.SetDefault("alert_cooldown", durationDefaults["alert_cooldown"].String())
		viper.SetDefault("cooldown_key", "name")
		viper.SetDefault("strict_extraction", false)
		viper.SetDefault("dextools_base_url", "https://www.dextools.io")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}

// GetDuration accepts Go duration strings ("3m", "20s"); a bare number is
// read as seconds. Unparsable or non-positive values fall back to the default.
func GetDuration(key string) time.Duration {
	InitConfig()
	raw := strings.TrimSpace(viper.GetString(key))
	def := durationDefaults[key]

	d, err := time.ParseDuration(raw)
	if n, nerr := strconv.ParseFloat(raw, 64); nerr == nil {
		d, err = time.Duration(n*float64(time.Second)), nil
	}
	if err == nil && (d > 0 || (d == 0 && zeroDurations[key])) {
		return d
	}

	log.Warnf("Invalid duration %q for %s, using %s", raw, key, def)
	return def
}
