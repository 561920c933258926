package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN          string
	MongoURI         string
	RedisAddr        string
	RabbitURL        string
	OTLPEndpoint     string
	FinalizeInterval time.Duration
	PriceCacheTTL    time.Duration
	BidGuardTTL      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	finalizeInterval, _ := time.ParseDuration(os.Getenv("FINALIZE_INTERVAL"))
	if finalizeInterval == 0 {
		finalizeInterval = 30 * time.Second
	}
	priceCacheTTL, _ := time.ParseDuration(os.Getenv("PRICE_CACHE_TTL"))
	if priceCacheTTL == 0 {
		priceCacheTTL = time.Second
	}
	bidGuardTTL, _ := time.ParseDuration(os.Getenv("BID_GUARD_TTL"))
	if bidGuardTTL == 0 {
		bidGuardTTL = 5 * time.Second
	}

	return &Config{
		CRDBDSN:          os.Getenv("CRDB_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		FinalizeInterval: finalizeInterval,
		PriceCacheTTL:    priceCacheTTL,
		BidGuardTTL:      bidGuardTTL,
	}, nil
}
