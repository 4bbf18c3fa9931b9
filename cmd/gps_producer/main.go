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

	log.Println("starting DSA GPS producer (NMEA → MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config from %s: %v", *configPath, err)
	}

	if err := app.RunGPSProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
