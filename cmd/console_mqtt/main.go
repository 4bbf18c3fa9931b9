package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/dsa_handheld/internal/app"
	"github.com/relabs-tech/dsa_handheld/internal/config"
)

func main() {
	configPath := flag.String("config", "dsa_config.txt", "Path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config from %s: %v", *configPath, err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("console error: %v", err)
	}
}
