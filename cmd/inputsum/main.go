package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jezek/xgb"

	"github.com/inputsum/inputsum/internal/config"
	"github.com/inputsum/inputsum/internal/daemon"
	"github.com/inputsum/inputsum/internal/database"
	"github.com/inputsum/inputsum/internal/recorder"
	"github.com/inputsum/inputsum/internal/reporter"
	"github.com/inputsum/inputsum/internal/web"
	"github.com/inputsum/inputsum/pkg/event"
	"github.com/inputsum/inputsum/pkg/x11"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "start":
		startDaemon(false)
	case "serve":
		startDaemon(true)
	case "run":
		runForeground()
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "report":
		generateReport()
	case "clear":
		clearDatabase()
	case "version":
		fmt.Printf("inputsum version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`inputsum - Global input activity recorder with application attribution

Usage:
  inputsum <command> [options]

Commands:
  start              Start the recording daemon
  serve              Start daemon with web API server
  run                Record in the foreground, logging each event
  stop               Stop the recording daemon
  status             Show daemon status and currently active window
  report [period]    Generate activity report (period: day, week, month)
  clear              Clear all recorded events from database
  version            Show version information
  help               Show this help message

Examples:
  inputsum start
  inputsum serve
  inputsum run
  inputsum status
  inputsum report day
  inputsum report week --json
  inputsum stop

Environment Variables:
  INPUTSUM_CONFIG      Config file path (default ~/.config/inputsum/config.yaml)
  INPUTSUM_DB_PATH     Database file path
  INPUTSUM_DISPLAY     X display to record (default $DISPLAY)
  INPUTSUM_STORE       Persist events to the database (true/false)
  INPUTSUM_PID_FILE    PID file path
  INPUTSUM_LOG_FILE    Log file path in daemon mode
  INPUTSUM_WEB_HOST    Web API host
  INPUTSUM_WEB_PORT    Web API port

Version: %s
`, version)
}

func startDaemon(withWeb bool) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Check if already running
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}

	// Check if we should daemonize
	if os.Getenv("INPUTSUM_DAEMON_CHILD") != "1" {
		// Parent process - fork and exit
		daemonize(cfg, withWeb)
		return
	}

	// Child process - run the daemon
	runDaemon(cfg, dm, withWeb)
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, withWeb bool) {
	// Redirect logs to file
	logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	// Initialize database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Write PID file
	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	repo := database.NewRepository(db)

	// Assemble the sink chain: session counters always, persistence when
	// configured.
	counts := event.NewCountSink()
	sinks := event.MultiSink{counts}
	if cfg.Recorder.Store {
		sinks = append(sinks, recorder.NewStoreSink(repo))
	}

	recorderSvc := recorder.NewService(cfg, repo, sinks)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Starting inputsum daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	var webServer *web.Server
	if withWeb {
		webServer = web.NewServer(cfg, repo, counts)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Web server error: %v", err)
			}
		}()
		log.Printf("Web API available at: http://%s", webServer.GetAddress())
	}

	recorderDone := make(chan error, 1)
	go func() {
		recorderDone <- recorderSvc.Start(ctx)
	}()

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
		cancel()
		<-recorderDone
	case err := <-recorderDone:
		if err != nil && err != context.Canceled {
			log.Printf("Recorder error: %v", err)
		}
		cancel()
	}

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	log.Println("Daemon stopped successfully")
}

// runForeground records without daemonizing or persisting, logging each
// attributed event. Useful for verifying the setup.
func runForeground() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	recorderSvc := recorder.NewService(cfg, nil, event.LogSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Println("Listening for global events... (Ctrl+C to stop)")
	if err := recorderSvc.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Recorder error: %v", err)
	}
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}

	// Show the currently active window even when the daemon is not running
	showActiveWindow(cfg)
}

func showActiveWindow(cfg *config.Config) {
	// Metadata only; no recording context needed here.
	conn, err := xgb.NewConnDisplay(cfg.Recorder.Display)
	if err != nil {
		fmt.Printf("\nCould not query the X server: %v\n", err)
		return
	}
	defer conn.Close()
	client := x11.NewClient(conn)

	resolver, err := x11.NewResolver(client)
	if err != nil {
		fmt.Printf("\nCould not resolve atoms: %v\n", err)
		return
	}

	active, err := resolver.ActiveWindow(client.Root())
	if err != nil {
		fmt.Printf("\nCould not determine active window: %v\n", err)
		return
	}

	fmt.Printf("\nActive Window:\n")
	fmt.Printf("  ID: 0x%x\n", uint32(active))
	if class, ok, _ := resolver.WindowClass(active); ok {
		fmt.Printf("  App: %s\n", class)
	}
	if name, ok, _ := resolver.WindowName(active); ok {
		fmt.Printf("  Title: %s\n", name)
	}
}

func generateReport() {
	periodType := "day"
	if len(os.Args) > 2 {
		periodType = os.Args[2]
	}

	cfg := config.New()

	// Initialize database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	rep := reporter.New(cfg, repo)

	// Check for JSON flag
	jsonOutput := false
	if len(os.Args) > 3 && os.Args[3] == "--json" {
		jsonOutput = true
	}

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Println(rep.FormatReportText(report))
	}
}

func clearDatabase() {
	cfg := config.New()

	// Prompt for confirmation
	fmt.Print("This will delete all recorded events. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	// Initialize database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Clear the database
	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("Database cleared successfully")
}

func daemonize(cfg *config.Config, withWeb bool) {
	// Fork the process
	env := os.Environ()
	env = append(env, "INPUTSUM_DAEMON_CHILD=1")

	args := os.Args

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	process, err := os.StartProcess(args[0], args, procAttr)
	if err != nil {
		log.Fatalf("Failed to start daemon process: %v", err)
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
}
