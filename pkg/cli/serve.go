package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getgraphd/graphd/pkg/auth"
	"github.com/getgraphd/graphd/pkg/config"
	"github.com/getgraphd/graphd/pkg/graphql"
	"github.com/getgraphd/graphd/pkg/graphqlws"
	"github.com/getgraphd/graphd/pkg/logging"

	"github.com/spf13/cobra"
)

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	configPath   string
	schemaPath   string
	host         string
	port         int
	path         string
	logLevel     string
	logFormat    string
	initTimeout  time.Duration
	writeTimeout time.Duration
	authSecret   string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GraphQL WebSocket server",
	Long: `Run the GraphQL WebSocket server in the foreground until SIGTERM/SIGINT.

Without --schema, the server exposes a built-in demo schema with a small
book catalog, a postMessage mutation, and a messageAdded subscription
backed by an in-process broker. With --schema, the given SDL file is
served instead; operations validate against it but no resolvers are
registered, which is useful for protocol-level testing.`,
	Example: `  # Start with the built-in demo schema
  graphd serve

  # Start from a config file
  graphd serve --config graphd.yaml

  # Custom bind address and JSON logs
  graphd serve --host 127.0.0.1 --port 8080 --log-format json

  # Require a JWT in the connection_init payload
  graphd serve --auth-secret s3cret`,
	RunE: runServe,
}

func init() {
	f := &serveFlagVals

	serveCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to config file (YAML or JSON)")
	serveCmd.Flags().StringVar(&f.schemaPath, "schema", "", "Path to a GraphQL SDL schema file")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Bind address")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", 0, "Server port")
	serveCmd.Flags().StringVar(&f.path, "path", "", "WebSocket endpoint path")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().DurationVar(&f.initTimeout, "init-timeout", 0, "How long to wait for connection_init before closing")
	serveCmd.Flags().DurationVar(&f.writeTimeout, "write-timeout", 0, "Per-message write deadline")
	serveCmd.Flags().StringVar(&f.authSecret, "auth-secret", "", "HMAC secret for JWT validation (empty = no auth)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	f := &serveFlagVals

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	engine, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	opts := graphqlws.Options{
		InitTimeout:        cfg.InitTimeout.Std(),
		WriteTimeout:       cfg.WriteTimeout.Std(),
		Logger:             log.With("component", "graphqlws"),
		OriginPatterns:     cfg.AllowedOrigins,
		InsecureSkipVerify: cfg.SkipOriginVerify,
	}
	if cfg.Auth.Secret != "" {
		opts.Interceptors = []graphqlws.Interceptor{
			auth.NewTokenInterceptor([]byte(cfg.Auth.Secret)),
		}
	}

	handler := graphqlws.NewHandler(graphqlws.NewEngineAdapter(engine), &opts)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, handler)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("server started",
		"addr", cfg.Addr(),
		"path", cfg.Path,
		"schema", schemaLabel(cfg),
		"auth", cfg.Auth.Secret != "",
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resolveConfig loads the config file when given and layers the explicitly
// set flags on top.
func resolveConfig(f *serveFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if f.host != "" {
		cfg.Host = f.host
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.path != "" {
		cfg.Path = f.path
	}
	if f.schemaPath != "" {
		cfg.SchemaFile = f.schemaPath
	}
	if f.initTimeout != 0 {
		cfg.InitTimeout = config.Duration(f.initTimeout)
	}
	if f.writeTimeout != 0 {
		cfg.WriteTimeout = config.Duration(f.writeTimeout)
	}
	if f.authSecret != "" {
		cfg.Auth.Secret = f.authSecret
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildEngine(cfg *config.Config) (*graphql.Engine, error) {
	if cfg.SchemaFile == "" {
		return NewDemoEngine(), nil
	}
	schema, err := graphql.ParseSchemaFile(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	return graphql.NewEngine(schema), nil
}

func schemaLabel(cfg *config.Config) string {
	if cfg.SchemaFile == "" {
		return "demo"
	}
	return cfg.SchemaFile
}
