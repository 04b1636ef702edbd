package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`

	// Límite diario por plan; un valor negativo significa ilimitado.
	QuotaTierLimits  map[string]int `env:"QUOTA_TIER_LIMITS" envDefault:"free:5,premium:25,platinum:-1"`
	QuotaDefaultTier string         `env:"QUOTA_DEFAULT_TIER" envDefault:"free"`
	QuotaTimeZone    string         `env:"QUOTA_TIMEZONE" envDefault:"UTC"`

	RankDefaultLimit int           `env:"RANK_DEFAULT_LIMIT" envDefault:"10"`
	RankMaxLimit     int           `env:"RANK_MAX_LIMIT" envDefault:"50"`
	RankWorkers      int           `env:"RANK_WORKERS" envDefault:"8"`
	RankPoolSize     int           `env:"RANK_POOL_SIZE" envDefault:"500"`
	RankFetchTimeout time.Duration `env:"RANK_FETCH_TIMEOUT" envDefault:"3s"`

	// Umbral de overall score a partir del cual se habilita el chat directo sin solicitud previa.
	DirectMessageThreshold int `env:"DIRECT_MESSAGE_THRESHOLD" envDefault:"80"`

	SwipeRateLimit  int           `env:"SWIPE_RATE_LIMIT" envDefault:"60"`
	SwipeRateWindow time.Duration `env:"SWIPE_RATE_WINDOW" envDefault:"1m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"match-engine"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
