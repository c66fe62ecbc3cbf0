package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/internal/config"
	"github.com/heimgewebe/mitschreiber/internal/daemon"
	"github.com/heimgewebe/mitschreiber/internal/database"
	"github.com/heimgewebe/mitschreiber/internal/logging"
	"github.com/heimgewebe/mitschreiber/internal/metrics"
	"github.com/heimgewebe/mitschreiber/internal/recorder"
	"github.com/heimgewebe/mitschreiber/internal/reporter"
	"github.com/heimgewebe/mitschreiber/internal/sampler"
	"github.com/heimgewebe/mitschreiber/internal/web"
	"github.com/heimgewebe/mitschreiber/pkg/detector"
	"github.com/heimgewebe/mitschreiber/pkg/window"
	"github.com/heimgewebe/mitschreiber/version"
)

const appName = "mitschreiber"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "start":
		startSession(args)
	case "stop":
		stopSession()
	case "status":
		showStatus()
	case "report":
		generateReport(args)
	case "clear":
		clearJournal(args)
	case "version":
		fmt.Printf("%s version %s\n", appName, version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%[1]s - desktop context sampler

Usage:
  %[1]s <command> [options]

Commands:
  start              Record a sampling session in the foreground
  stop               Stop the active session
  status             Show the active session and its latest sample
  report <session>   Summarize a recorded session by application
  clear              Delete all recorded sessions from the journal
  version            Show version information
  help               Show this help message

Start options:
  --poll-interval ms   Sampling interval in milliseconds (default 500)
  --max-buffered n     Keep at most n unpolled samples, dropping the oldest
  --clipboard          Attach clipboard text to samples
  --embed              Store embed events for window and clipboard text
  --serve              Serve the journal API and metrics while recording
  --port n             Port for --serve
  --session id         Session id (default: random UUID)

Examples:
  %[1]s start --poll-interval 250 --serve
  %[1]s status
  %[1]s report 3f1c... --json
  %[1]s stop

Environment Variables:
  MITSCHREIBER_SAMPLER_POLL_INTERVAL   Poll interval (e.g. 500ms)
  MITSCHREIBER_SAMPLER_MAX_BUFFERED    Unpolled sample limit (0 = unbounded)
  MITSCHREIBER_SAMPLER_CLIPBOARD       Attach clipboard text (true/false)
  MITSCHREIBER_JOURNAL_PATH            Journal database file path
  MITSCHREIBER_DAEMON_ACTIVE_FILE      Active session file path
  MITSCHREIBER_WEB_HOST / _WEB_PORT    Address for --serve
  MITSCHREIBER_LOGGING_LEVEL           debug, info, warn, error
  MITSCHREIBER_EMBED                   Enable embed events (1/true)

Version: %[2]s
`, appName, version.Version)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.New()
	if err != nil {
		fatalf("%v", err)
	}
	return cfg
}

func newLogger(cfg *config.Config) *zap.Logger {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level

	log, err := logging.New(logCfg)
	if err != nil {
		fatalf("failed to create logger: %v", err)
	}
	return log
}

func openDaemon(cfg *config.Config) *daemon.Daemon {
	dm, err := daemon.New(cfg.Daemon.ActiveFile)
	if err != nil {
		fatalf("failed to resolve active session file: %v", err)
	}
	return dm
}

func openJournal(cfg *config.Config) (*database.DB, *database.Repository) {
	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		fatalf("failed to open journal: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		fatalf("%v", err)
	}
	return db, database.NewRepository(db)
}

func startSession(args []string) {
	cfg := loadConfig()

	fs := pflag.NewFlagSet("start", pflag.ExitOnError)
	pollMS := fs.Int64("poll-interval", cfg.GetPollIntervalMillis(), "sampling interval in milliseconds")
	maxBuffered := fs.Int("max-buffered", cfg.Sampler.MaxBuffered, "unpolled sample limit (0 = unbounded)")
	clipboard := fs.Bool("clipboard", cfg.Sampler.Clipboard, "attach clipboard text to samples")
	embedFlag := fs.Bool("embed", cfg.Embed.Enabled, "store embed events")
	serve := fs.Bool("serve", false, "serve the journal API and metrics")
	port := fs.Int("port", 0, "port for --serve")
	sessionID := fs.String("session", "", "session id")
	fs.Parse(args)

	if err := cfg.SetPollInterval(time.Duration(*pollMS) * time.Millisecond); err != nil {
		fatalf("%v", err)
	}
	cfg.Sampler.MaxBuffered = *maxBuffered
	cfg.Sampler.Clipboard = *clipboard
	cfg.Embed.Enabled = *embedFlag
	if *port > 0 {
		if err := cfg.SetWebPort(*port); err != nil {
			fatalf("%v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatalf("invalid configuration: %v", err)
	}

	dm := openDaemon(cfg)
	running, active, err := dm.IsRunning()
	if err != nil {
		fatalf("failed to check session status: %v", err)
	}
	if running {
		fatalf("session %s is already active (PID: %d)", active.SessionID, active.PID)
	}

	id := *sessionID
	if id == "" {
		id = uuid.NewString()
	}

	log := newLogger(cfg)
	defer log.Sync()

	db, repo := openJournal(cfg)
	defer db.Close()

	m := metrics.New()
	mgr := sampler.Init(sampler.WithLogger(log), sampler.WithObserver(m))
	defer mgr.Close()

	opts := sampler.Options{
		PollInterval: cfg.Sampler.PollInterval,
		MaxBuffered:  cfg.Sampler.MaxBuffered,
		Clipboard:    cfg.Sampler.Clipboard,
	}

	if err := dm.WriteActive(&daemon.Active{
		SessionID:   id,
		PID:         os.Getpid(),
		JournalPath: db.Path(),
		StartedAt:   window.Now(),
		Flags: daemon.Flags{
			Embed:          cfg.Embed.Enabled,
			Clipboard:      cfg.Sampler.Clipboard,
			PollIntervalMS: cfg.GetPollIntervalMillis(),
			MaxBuffered:    cfg.Sampler.MaxBuffered,
		},
	}); err != nil {
		fatalf("%v", err)
	}
	defer func() {
		if err := dm.RemoveActive(); err != nil {
			log.Warn("failed to remove active session file", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var webServer *web.Server
	if *serve {
		handler := web.NewHandler(cfg, repo, mgr, m.Handler(), log)
		webServer = web.NewServer(cfg, handler, log, 0)
		go func() {
			if err := webServer.Start(); err != nil {
				log.Error("web server error", zap.Error(err))
				cancel()
			}
		}()
	}

	fmt.Printf("Session %s started (PID: %d, backend: %s)\n", id, os.Getpid(), detector.WindowingBackend)
	if webServer != nil {
		fmt.Printf("Journal API available at: http://%s\n", webServer.GetAddress())
	}
	log.Debug("configuration", zap.String("config", cfg.String()))

	rec := recorder.NewService(cfg, id, opts, mgr, repo, log)
	if err := rec.Start(ctx); err != nil && err != context.Canceled {
		log.Error("recorder error", zap.Error(err))
	}

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("error shutting down web server", zap.Error(err))
		}
	}

	fmt.Printf("Session %s stopped: %d samples recorded", id, rec.Recorded())
	if cfg.Embed.Enabled {
		fmt.Printf(", %d embed events", rec.Embedded())
	}
	fmt.Println()
}

func stopSession() {
	cfg := loadConfig()
	dm := openDaemon(cfg)

	running, active, err := dm.IsRunning()
	if err != nil {
		fatalf("failed to check session status: %v", err)
	}

	if !running {
		fmt.Println("No active session")
		return
	}

	fmt.Printf("Stopping session %s (PID: %d)...\n", active.SessionID, active.PID)
	if err := dm.Stop(); err != nil {
		fatalf("failed to stop session: %v", err)
	}

	fmt.Println("Stop signal sent")
}

func showStatus() {
	cfg := loadConfig()
	dm := openDaemon(cfg)

	running, active, err := dm.IsRunning()
	if err != nil {
		fatalf("failed to check session status: %v", err)
	}

	if !running {
		fmt.Println("Status: No active session")
		fmt.Printf("Display server: %s\n", detector.DetectDisplayServer())
		return
	}

	fmt.Printf("Status: Recording (PID: %d)\n", active.PID)
	fmt.Printf("Session: %s\n", active.SessionID)
	fmt.Printf("Started: %s\n", active.StartedAt)
	fmt.Printf("Poll Interval: %dms\n", active.Flags.PollIntervalMS)
	fmt.Printf("Clipboard: %v  Embed: %v\n", active.Flags.Clipboard, active.Flags.Embed)
	if active.JournalPath != "" {
		fmt.Printf("Journal: %s\n", active.JournalPath)
	}

	db, repo := openJournal(cfg)
	defer db.Close()

	latest, err := repo.GetLatest(active.SessionID)
	if err == nil && latest != nil {
		fmt.Printf("\nLatest Sample:\n")
		fmt.Printf("  App: %s\n", latest.AppName)
		fmt.Printf("  Window: %s\n", latest.WindowTitle)
		fmt.Printf("  Time: %s\n", window.FormatTimestamp(latest.Timestamp))
	}
}

func generateReport(args []string) {
	cfg := loadConfig()

	fs := pflag.NewFlagSet("report", pflag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "print the report as JSON")
	pollMS := fs.Int64("poll-interval", cfg.GetPollIntervalMillis(), "interval the session was sampled at, in milliseconds")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("usage: %s report <session> [--json] [--poll-interval ms]", appName)
	}
	if *pollMS <= 0 {
		fatalf("poll interval must be positive")
	}

	db, repo := openJournal(cfg)
	defer db.Close()

	rep := reporter.New(repo)
	report, err := rep.GenerateReport(fs.Arg(0), time.Duration(*pollMS)*time.Millisecond)
	if err != nil {
		fatalf("failed to generate report: %v", err)
	}

	if *jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Println(rep.FormatReportText(report))
	}
}

func clearJournal(args []string) {
	cfg := loadConfig()

	fs := pflag.NewFlagSet("clear", pflag.ExitOnError)
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		fmt.Print("This will delete all recorded sessions. Are you sure? (yes/no): ")
		response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" && response != "y" {
			fmt.Println("Operation cancelled")
			return
		}
	}

	db, repo := openJournal(cfg)
	defer db.Close()

	if err := repo.Clear(); err != nil {
		fatalf("failed to clear journal: %v", err)
	}

	fmt.Println("Journal cleared successfully")
}
