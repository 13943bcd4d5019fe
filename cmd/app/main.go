package main

import (
	"flag"
	"log"
	"os"

	"Fractrade/internal/di"
	"Fractrade/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s exchange=%s mode=%s symbols=%v timeframes=%v",
		cfg.Environment, cfg.Exchange.Name, cfg.Execution.Mode,
		cfg.Trading.Symbols, cfg.Trading.Timeframes)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v topics=[%s %s %s]", cfg.Kafka.Brokers,
			cfg.Kafka.Topics.Bars, cfg.Kafka.Topics.Events, cfg.Kafka.Topics.Signals)
	}

	// Run blocks until a termination signal.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
