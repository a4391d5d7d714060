package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rcarmo/colorpick/internal/config"
	"github.com/rcarmo/colorpick/internal/handler"
	"github.com/rcarmo/colorpick/internal/logging"
	"github.com/rcarmo/colorpick/internal/sampler"
)

const (
	appName    = "Colorpick Frame Sampler"
	appVersion = "v1.0.0"

	shutdownTimeout = 5 * time.Second
)

type parsedArgs struct {
	host     string
	port     string
	logLevel string
	format   string
}

func main() {
	args, action := parseFlags()
	switch action {
	case "help":
		showHelp()
		return
	case "version":
		showVersion()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(argv []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("colorpick", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	hostFlag := fs.String("host", "", "server listen host")
	portFlag := fs.String("port", "", "server listen port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	formatFlag := fs.String("format", "", "camera frame format (nv21, nv12)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(argv); err != nil {
		return parsedArgs{}, "help"
	}

	if *helpFlag {
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:     strings.TrimSpace(*hostFlag),
		port:     strings.TrimSpace(*portFlag),
		logLevel: strings.TrimSpace(*logLevelFlag),
		format:   strings.TrimSpace(*formatFlag),
	}, ""
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:     args.host,
		Port:     args.port,
		LogLevel: args.logLevel,
		Format:   args.format,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogging(cfg.Logging)

	s, err := sampler.New(cfg.Frame, log)
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	server := createServer(cfg, handler.New(cfg, s, log), log)
	log.Info("starting server on %s (format=%s, max=%dx%d)", server.Addr, s.Format(), cfg.Frame.MaxWidth, cfg.Frame.MaxHeight)

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(server)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}

func createServer(cfg *config.Config, h *handler.Handler, log *logging.Logger) *http.Server {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	mux := http.NewServeMux()
	h.Register(mux)

	var next http.Handler = mux
	next = corsMiddleware(next, cfg.Security.AllowedOrigins)
	next = securityHeadersMiddleware(next)
	next = requestLoggingMiddleware(next, log)

	return &http.Server{
		Addr:         addr,
		Handler:      next,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && handler.IsAllowedOrigin(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setupLogging(cfg config.LoggingConfig) *logging.Logger {
	log := logging.Default()
	log.SetLevelFromString(cfg.Level)
	return log
}

func requestLoggingMiddleware(next http.Handler, log *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("%s %s %s %s", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func startServer(server *http.Server) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: colorpick [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host        Set server listen host (default 0.0.0.0)")
	fmt.Println("  -port        Set server listen port (default 8080)")
	fmt.Println("  -log-level   Set log level (debug, info, warn, error)")
	fmt.Println("  -format      Set camera frame format (nv21, nv12; default nv21)")
	fmt.Println("  -version     Show version information")
	fmt.Println("  -help        Show this help message")
	fmt.Println("ENDPOINTS: POST /sample, POST /preview, GET /stream (WebSocket), GET /healthz")
	fmt.Println("ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, FRAME_FORMAT, FRAME_MAX_WIDTH, FRAME_MAX_HEIGHT, ALLOWED_ORIGINS, MAX_CONNECTIONS")
	fmt.Println("EXAMPLES: colorpick -host 0.0.0.0 -port 8080 -format nv21")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Built with", runtime.Version())
}
