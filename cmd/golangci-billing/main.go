package main

import (
	"log"
	"os"

	app "github.com/golangci/golangci-billing/pkg/api"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional: in production the environment is set by the platform
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Can't load .env: %s", err)
	}

	a := app.NewApp()
	a.RunForever()
}
