package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vulncontext/vulncontext-mcp/internal/cli"
)

func main() {
	// stdout is reserved for the MCP protocol when serving
	log.SetOutput(os.Stderr)

	// .env is optional; environment variables win when both are set
	_ = godotenv.Load()

	cli.Execute()
}
