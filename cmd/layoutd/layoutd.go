package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/caption.review/internal/api"
	"github.com/banshee-data/caption.review/internal/config"
	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/layout/monitor"
	"github.com/banshee-data/caption.review/internal/predict"
	"github.com/banshee-data/caption.review/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	adminListen = flag.String("admin-listen", "localhost:8081", "Admin listen address for the SQL console and backups (empty disables)")
	dbFile      = flag.String("db", "", "Path to the SQLite database file (default $LAYOUT_DB or layout_data.db)")
	predictURL  = flag.String("predict-url", "", "Base URL of the prediction service (default $PREDICT_URL; empty disables recalculation)")
	tuningFile  = flag.String("tuning", "", "Path to a JSON engine tuning file")
	plotDir     = flag.String("plot-dir", "analysis_out", "Directory the analyze command writes profile plots to")
	autoMigrate = flag.Bool("auto-migrate", true, "Apply pending schema migrations on startup")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	// Values from an optional .env fill flags left at their defaults
	_ = godotenv.Load()

	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("layoutd %s\n", version.String())
		return
	}

	if *dbFile == "" {
		*dbFile = envOr("LAYOUT_DB", "layout_data.db")
	}
	if *predictURL == "" {
		*predictURL = os.Getenv("PREDICT_URL")
	}

	if flag.NArg() == 0 {
		serve()
		return
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "serve":
		serve()
	case "migrate":
		db.RunMigrateCommand(args, *dbFile)
	case "analyze":
		runAnalyze(args)
	case "seed":
		runSeed(args)
	case "version":
		fmt.Printf("layoutd %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println(`layoutd - Caption layout analysis service

Usage: layoutd [flags] [command]

Running without a command starts the HTTP service.

Commands:
  serve      Start the HTTP service (default)
  migrate    Manage the database schema (up, down, status, version, force, baseline)
  analyze    Analyze one video offline and write profile plots
  seed       Create a demo video with synthetic OCR boxes
  version    Show layoutd version
  help       Show this help message

Flags:`)
	flag.PrintDefaults()
}

// buildEngine constructs the analysis engine, applying the tuning file when
// one is given.
func buildEngine() *layout.Engine {
	params := layout.DefaultParams()
	if *tuningFile != "" {
		tuning, err := config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		params = tuning.EngineParams()
		log.Printf("Loaded engine tuning from %s", *tuningFile)
	}
	return layout.NewEngine(params)
}

func serve() {
	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	database, err := db.NewDBWithMigrationCheck(*dbFile, *autoMigrate)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	engine := buildEngine()

	var notifier db.PredictionNotifier
	var dispatcher *predict.Dispatcher
	if *predictURL != "" {
		dispatcher = predict.NewDispatcher(predict.NewClient(nil, *predictURL))
		notifier = dispatcher
		log.Printf("Prediction recalculation wired to %s", *predictURL)
	} else {
		log.Println("Prediction service not configured; parameter changes will not trigger recalculation")
	}

	updater := db.NewLayoutUpdater(database, notifier)
	resets := db.NewResetRunner(updater, engine)
	charts := monitor.NewChartServer(database, engine)

	// Create a wait group for the HTTP server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// API server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, updater, resets, charts).ServeMux()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting API server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down API server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("API server force close error: %v", err)
			}
		}

		log.Printf("API server routine stopped")
	}()

	// Admin server goroutine: SQL console, debugger, backup and stats routes
	if *adminListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			adminMux := http.NewServeMux()
			database.AttachAdminRoutes(adminMux)

			server := &http.Server{
				Addr:    *adminListen,
				Handler: adminMux,
			}

			go func() {
				log.Printf("Starting admin server on %s", *adminListen)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start admin server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("shutting down admin server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("Admin server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("Admin server force close error: %v", err)
				}
			}

			log.Printf("Admin server routine stopped")
		}()
	}

	// Wait for all goroutines to finish
	wg.Wait()

	if dispatcher != nil {
		// Drain in-flight prediction notifications before exiting
		dispatcher.Close()
	}

	log.Printf("Graceful shutdown complete")
}

// runAnalyze performs one offline analysis run against stored boxes,
// printing the result and writing density profile plots.
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	videoID := fs.String("video", "", "Video ID to analyze (required)")
	fs.Parse(args)

	if *videoID == "" {
		log.Fatal("Usage: layoutd analyze -video <id>")
	}

	database, err := db.NewDBWithMigrationCheck(*dbFile, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	cfg, err := database.GetLayoutConfig(*videoID)
	if err != nil {
		log.Fatalf("Failed to load layout config: %v", err)
	}

	boxes, err := database.CaptionBoxesForVideo(*videoID)
	if err != nil {
		log.Fatalf("Failed to load boxes: %v", err)
	}
	if len(boxes) == 0 {
		log.Print("No caption boxes yet; analyzing all stored boxes")
		boxes, err = database.AllBoxesForVideo(*videoID)
		if err != nil {
			log.Fatalf("Failed to load boxes: %v", err)
		}
	}

	analysis, err := buildEngine().Analyze(boxes, cfg.FrameWidth, cfg.FrameHeight)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode analysis: %v", err)
	}
	fmt.Println(string(out))

	files, err := monitor.NewProfilePlotter(*plotDir).SavePlots(*videoID, analysis)
	if err != nil {
		log.Fatalf("Failed to write profile plots: %v", err)
	}
	for _, f := range files {
		log.Printf("Wrote %s", f)
	}
}

// syntheticBoxes builds one caption line per frame in the lower-center band,
// width varying with the frame index so the size histogram has some spread,
// plus occasional channel chrome near the top left. Y is bottom-relative, so
// captions carry a small Y and chrome a large one.
func syntheticBoxes(frames int) []layout.OCRBox {
	var boxes []layout.OCRBox
	for i := 0; i < frames; i++ {
		width := 0.22 + 0.002*float64(i%40)
		boxes = append(boxes, layout.OCRBox{
			FrameIndex: i,
			X:          0.5 - width/2,
			Y:          0.10,
			Width:      width,
			Height:     0.05,
			Text:       fmt.Sprintf("synthetic caption line %d", i),
			Confidence: 0.85 + 0.001*float64(i%100),
		})
		if i%10 == 0 {
			boxes = append(boxes, layout.OCRBox{
				FrameIndex: i,
				X:          0.05,
				Y:          0.92,
				Width:      0.12,
				Height:     0.04,
				Text:       "LIVE",
				Confidence: 0.6,
			})
		}
	}
	return boxes
}

// runSeed provisions a demo video whose synthetic boxes cluster where
// captions usually sit, with some stray chrome boxes mixed in.
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	frames := fs.Int("frames", 120, "Number of frames to synthesize")
	fs.Parse(args)

	if *frames < 1 {
		log.Fatal("frames must be >= 1")
	}

	database, err := db.NewDBWithMigrationCheck(*dbFile, true)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	videoID := uuid.New().String()
	if _, err := database.CreateLayoutConfig(videoID, 1920, 1080); err != nil {
		log.Fatalf("Failed to create layout config: %v", err)
	}

	boxes := syntheticBoxes(*frames)
	if err := database.InsertOCRBoxes(videoID, boxes); err != nil {
		log.Fatalf("Failed to insert boxes: %v", err)
	}

	fmt.Printf("Seeded video %s with %d boxes across %d frames\n", videoID, len(boxes), *frames)
	fmt.Printf("Try: layoutd analyze -video %s\n", videoID)
}
