package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lzhang-oss/winboard/internal/app"
	"github.com/lzhang-oss/winboard/internal/auth"
	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/web"
)

var version = "dev"

func main() {
	port := flag.Int("port", 5000, "HTTP server port")
	dbPath := flag.String("db", "winboard.db", "SQLite database path")
	adminPw := flag.String("adminpw", "", "Admin password (auto-generated if not set)")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `WinBoard - win-log ingestion & stats dashboard

Usage:
  winboard [options]

Options:
  -port int      HTTP server port (default 5000)
  -db string     SQLite database path (default "winboard.db")
  -adminpw str   Admin password (auto-generated if not set)
  -loglevel str  Log level: debug, info, warn, error (default "info")
  -httplog       Log every HTTP request
  -version       Show version and exit
  -help          Show this help message

Examples:
  winboard                           # Run on port 5000 with winboard.db
  winboard -port 8080                # Run on port 8080
  winboard -db /data/winboard.db     # Use custom database path
  winboard -adminpw secret123        # Use specific admin password

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("winboard %s\n", version)
		os.Exit(0)
	}

	// Setup admin authentication
	password := *adminPw
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth := auth.New(password)

	// Create logger with specified level
	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	if *httpLog {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, *dbPath, web.GetTemplatesFS(), web.GetStaticFS(), adminAuth)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	appLog.Info("Admin password", "password", password)

	addr := fmt.Sprintf(":%d", *port)
	if err := a.Run(addr); err != nil {
		log.Fatal(err)
	}
}
