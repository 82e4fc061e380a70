package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eringen/folioengine"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "useradd":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: folioengine useradd <username>")
			os.Exit(1)
		}
		if err := runUserAdd(os.Args[2], os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("folioengine %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := folioengine.ConfigFromEnv()
	if err != nil {
		return err
	}
	app := folioengine.New(cfg)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Start(ctx)
}

func printUsage() {
	fmt.Println(`folioengine - content backend for portfolio and blog sites

Usage:
  folioengine [command] [arguments]

Commands:
  serve             Start the HTTP server (default)
  useradd <name>    Create an admin identity; the password is read from
                    FOLIO_NEW_PASSWORD or the first line of stdin
  version           Print the folioengine version
  help              Show this help message

Configuration is read from FOLIO_* environment variables; FOLIO_JWT_SECRET
is required.`)
}
