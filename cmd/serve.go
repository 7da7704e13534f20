package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/agentcard"
	"github.com/theapemachine/a2a-go/pkg/executor"
	"github.com/theapemachine/a2a-go/pkg/logging"
	"github.com/theapemachine/a2a-go/pkg/push"
	"github.com/theapemachine/a2a-go/pkg/service"
	"github.com/theapemachine/a2a-go/pkg/stores"
	"github.com/theapemachine/a2a-go/pkg/stores/s3"
	"github.com/theapemachine/a2a-go/pkg/tasks"
)

var (
	portFlag int
	hostFlag string

	s3EndpointFlag string
	s3BucketFlag   string
	s3SSLFlag      bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve an A2A agent",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
	serveCmd.Flags().StringVar(&s3EndpointFlag, "s3-endpoint", "", "S3-compatible endpoint for task storage (empty: in-memory storage)")
	serveCmd.Flags().StringVar(&s3BucketFlag, "s3-bucket", "a2a-tasks", "bucket name when --s3-endpoint is set")
	serveCmd.Flags().BoolVar(&s3SSLFlag, "s3-ssl", true, "use TLS when talking to the S3 endpoint")
}

// newStorage builds the Storage port: an S3-compatible bucket when
// --s3-endpoint is set (credentials from S3_ACCESS_KEY/S3_SECRET_KEY), the
// in-memory LRU otherwise.
func newStorage() (stores.Storage, error) {
	if s3EndpointFlag == "" {
		return stores.NewInMemory(stores.DefaultMaxEntries, stores.DefaultTTL), nil
	}
	conn, err := s3.NewConn(s3EndpointFlag, os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_SECRET_KEY"), s3BucketFlag, s3SSLFlag)
	if err != nil {
		return nil, fmt.Errorf("connect to s3 storage: %w", err)
	}
	return s3.NewStore(conn), nil
}

func runServe() error {
	logger := logging.New(charmlog.New(os.Stderr))

	addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)
	base := a2a.NewAgentCardFromConfig("default")
	if base.URL == "" {
		base.URL = fmt.Sprintf("http://%s:%d", hostFlag, portFlag)
	}
	base.Capabilities.Streaming = true
	base.Capabilities.PushNotifications = true

	registry := agentcard.NewRegistry()
	registry.Register(agentcard.Capability{
		Name:        "echo",
		Description: "Echoes the sent message back as a completed task.",
		Tags:        []string{"reference"},
		Streaming:   true,
	})

	storage, err := newStorage()
	if err != nil {
		return err
	}
	taskManager := tasks.NewManager(storage, tasks.DefaultMaxHistoryLength)
	pushManager := push.NewManager(storage)
	cardServer := agentcard.NewServer(*base, registry, agentcard.DefaultCacheTTL)

	bg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	handler := service.NewHandler(bg, taskManager, pushManager, cardServer, executor.Echo{}, service.DefaultConfig(), logger)

	mux := http.NewServeMux()
	handler.Mount(mux, "")
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("a2a server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

var longServe = `
Serve an A2A agent over JSON-RPC and SSE.

Example:
  a2a-go serve --port 3210
`
