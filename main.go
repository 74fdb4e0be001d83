package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yashdarak08/Graph-Machine-Learning/prompts"
	"github.com/yashdarak08/Graph-Machine-Learning/services"
	"github.com/yashdarak08/Graph-Machine-Learning/tools"
)

func main() {
	envFile := flag.String("env", ".env", "Path to environment file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: Error loading env file %s: %v\n", *envFile, err)
	}

	logger := services.DefaultLogger()

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"fingraph-mcp",
		"1.0.0",
		server.WithLogging(),
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
	)

	tools.RegisterCompanyGraphTools(mcpServer)
	prompts.RegisterCompanyGraphPrompts(mcpServer)

	logger.Info("Serving company graph tools over stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		panic(fmt.Sprintf("Server error: %v", err))
	}
}
