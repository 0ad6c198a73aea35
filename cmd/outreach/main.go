package main

import (
	"log"

	"github.com/openfoundry/outreach/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ outreach failed to start: %v", err)
	}
}
