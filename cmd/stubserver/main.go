package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/phamvanchien/social-web/stub"
)

// stubserver is a self-contained backend for local development. It
// accepts any email and password pair and keeps everything in memory.
func main() {
	godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := stub.NewAPIServer(":" + port)
	if err := server.Run(); err != nil {
		log.Fatal(err)
	}
}
