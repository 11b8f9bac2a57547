package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/despeckle-mcp/internal/config"
	"github.com/ironsheep/despeckle-mcp/internal/ocr"
	"github.com/ironsheep/despeckle-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// envFile is read at startup when present.
const envFile = ".env"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("despeckle-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Protocol server: %s\n", server.Version)
			fmt.Printf("  Tesseract: %s\n", ocr.Version())
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "despeckle":
			configureLogging()
			cfg, err := config.Load(envFile)
			if err != nil {
				log.Fatalf("Configuration error: %v", err)
			}
			if err := runDespeckle(cfg, os.Args[2:], os.Stderr); err != nil {
				fmt.Fprintf(os.Stderr, "despeckle: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	configureLogging()

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("Despeckle MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Defaults: %s radius %d levels %d..%d, block rows %d, max pixels %d",
			cfg.Defaults.Mode(), cfg.Defaults.Radius, cfg.Defaults.BlackLevel, cfg.Defaults.WhiteLevel,
			cfg.BlockRows, cfg.MaxPixels)
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func configureLogging() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func printUsage() {
	fmt.Println("despeckle-mcp - MCP server for adaptive and recursive median despeckling")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  despeckle-mcp [options]             Run the MCP server on stdin/stdout")
	fmt.Println("  despeckle-mcp despeckle -i IN -o OUT [flags]")
	fmt.Println("                                      Filter one image and exit")
	fmt.Println("  despeckle-mcp despeckle -i IN -o OUT radius [type [black [white]]]")
	fmt.Println("                                      Same, with positional filter values")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Run 'despeckle-mcp despeckle -h' for the filter flags.")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  DESPECKLE_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  DESPECKLE_RADIUS=3               Default window radius (1-20)")
	fmt.Println("  DESPECKLE_MODE=1                 Default filter type bitmask (1=adaptive, 2=recursive)")
	fmt.Println("  DESPECKLE_BLACK_LEVEL=7          Default black level (0-255)")
	fmt.Println("  DESPECKLE_WHITE_LEVEL=248        Default white level (0-255)")
	fmt.Println("  DESPECKLE_BLOCK_ROWS=64          Rows read ahead per block")
	fmt.Println("  DESPECKLE_MAX_PIXELS=100000000   Largest image accepted")
	fmt.Println()
	fmt.Println("The server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
