package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/docrag"
	"github.com/flarexio/docrag/embedding"
	"github.com/flarexio/docrag/llm"
	"github.com/flarexio/docrag/persistence/chromem"
	"github.com/flarexio/docrag/persistence/qdrant"
	"github.com/flarexio/docrag/upload"
	"github.com/flarexio/docrag/vector"

	mcpE "github.com/flarexio/docrag/mcp"
	httpT "github.com/flarexio/docrag/transport/http"
	natsT "github.com/flarexio/docrag/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "docrag",
		Usage: "DocRAG document question answering service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the DocRAG service",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func newBackend(cfg docrag.Config, path string) (vector.Backend, error) {
	switch cfg.Vector.Backend {
	case vector.BackendTypeQdrant:
		return qdrant.NewQdrantBackend(cfg.Vector.Qdrant), nil

	case vector.BackendTypeChromem:
		if cfg.Vector.Chromem.Persistent && cfg.Vector.Chromem.Path == "" {
			cfg.Vector.Chromem.Path = filepath.Join(path, "vectors")
		}

		return chromem.NewChromemBackend(cfg.Vector.Chromem)

	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.Vector.Backend)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "docrag")
	}

	for _, env := range []string{filepath.Join(path, ".env"), ".env"} {
		_ = godotenv.Load(env)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := docrag.LoadConfig(path)
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg, path)
	if err != nil {
		return err
	}

	loader, err := embedding.NewLoader(cfg.Embedding)
	if err != nil {
		return err
	}

	generator, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return err
	}

	if !generator.Configured() {
		log.Warn("llm endpoint not configured, answers are placeholders")
	}

	if cfg.IngestRoot == "" {
		log.Warn("ingest root not set, any readable path can be ingested")
	}

	db := vector.NewDB(backend, cfg.Vector.Metric)

	svc, err := docrag.NewService(cfg, embedding.NewProvider(loader), db, generator)
	if err != nil {
		return err
	}
	defer svc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc = docrag.LoggingMiddleware(log)(svc)
	svc = docrag.InstrumentingMiddleware(reg)(svc)

	endpoints := docrag.MakeEndpoints(svc)

	// Add NATS Transport
	idBytes, err := os.ReadFile(filepath.Join(path, "id"))
	switch {
	case err == nil:
		edgeID := strings.TrimSpace(string(idBytes))
		natsURL := cmd.String("nats")
		natsCreds := filepath.Join(path, "user.creds")

		nc, err := nats.Connect(natsURL,
			nats.Name("DocRAG Server - "+edgeID),
			nats.UserCredentials(natsCreds),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "docrag",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + edgeID + ".docrag"

		root := srv.AddGroup(topic)
		if err := natsT.AddEndpoints(root, endpoints); err != nil {
			return err
		}

		log.Info("nats transport enabled", zap.String("topic", topic))

	case errors.Is(err, os.ErrNotExist):
		log.Warn("edge id not found, nats transport disabled")

	default:
		return err
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints, upload.NewStore(cfg.UploadDir))
		httpT.AddMetricsRouter(r, reg)

		endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		endpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		endpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, endpoints)

		httpServer := &http.Server{
			Addr:    cmd.String("http-addr"),
			Handler: r,
		}

		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(err.Error())
			}
		}()

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				log.Error(err.Error())
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
