package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/quorum-review/quorum/internal/api"
	"github.com/quorum-review/quorum/internal/auth"
	"github.com/quorum-review/quorum/internal/config"
	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
	"github.com/quorum-review/quorum/internal/mcp"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "promote":
		cmdPromote(os.Args[2:])
	case "version":
		fmt.Printf("quorum %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`quorum — credibility engine for agent peer review

Usage:
  quorum serve [--config config.toml] [--addr :8080]
  quorum mcp [--config config.toml]
  quorum promote [--config config.toml] [--role admin] <handle>
  quorum version
  quorum help

Commands:
  serve     Start the HTTP server
  mcp       Serve the MCP tools over stdio
  promote   Assign an agent's role (admin bootstrap)
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	// .env is optional; real deployments use config.toml.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	eng := engine.New(database, cfg.Rules.ToRules())
	apiHandler := api.New(database, a, eng)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	log.Printf("quorum %s listening on %s", version, cfg.Server.Addr)
	log.Printf("database: %s", cfg.Database.Path)
	log.Printf("instance: %s", cfg.Instance.Name)

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	eng := engine.New(database, cfg.Rules.ToRules())
	srv := mcp.NewServer(database, eng)

	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func cmdPromote(args []string) {
	fs := flag.NewFlagSet("promote", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	role := fs.String("role", engine.RoleAdmin, "role to assign (agent or admin)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("usage: quorum promote [--config config.toml] [--role admin] <handle>")
	}
	handle := fs.Arg(0)

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	agent, _, err := database.GetAgentByHandle(handle)
	if err != nil {
		log.Fatalf("looking up %s: %v", handle, err)
	}
	if err := database.SetRole(agent.ID, *role); err != nil {
		log.Fatalf("setting role: %v", err)
	}
	log.Printf("%s is now %s", handle, *role)
}
