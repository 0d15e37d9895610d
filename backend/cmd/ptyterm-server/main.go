// Command ptyterm-server serves terminal sessions to a browser over
// WebSocket. Every connection to /ws/terminal gets its own shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ptyterm/backend/internal/config"
	"ptyterm/backend/internal/display"
	"ptyterm/backend/internal/logging"
	"ptyterm/backend/pkg/utils"
	"ptyterm/backend/service/terminal"
	"ptyterm/frontend"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultListenAddr = "127.0.0.1:45678"

type flags struct {
	configPath string
	listen     string
	shell      string
	logLevel   string
	noUI       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	defaultPath, _ := config.DefaultPath()

	cmd := &cobra.Command{
		Use:   "ptyterm-server",
		Short: "Serve PTY-backed shells over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") || cfg.ListenAddr == "" {
				cfg.ListenAddr = f.listen
			}
			if cmd.Flags().Changed("shell") {
				cfg.Shell = f.shell
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = f.logLevel
			}
			if cfg.ListenAddr == "" {
				return errors.New("no listen address configured")
			}
			return run(cmd.Context(), cfg, f)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", defaultPath, "config file (JSON)")
	cmd.Flags().StringVarP(&f.listen, "listen", "l", defaultListenAddr, "listen address, overrides listenAddr")
	cmd.Flags().StringVar(&f.shell, "shell", "", "shell to start, overrides shell")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().BoolVar(&f.noUI, "no-ui", false, "serve only the WebSocket endpoint")
	return cmd
}

func run(parent context.Context, cfg *config.Config, f flags) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
		OutputPaths: outputPaths(cfg),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	svc := terminal.NewService(cfg, log.Named("terminal"))
	defer svc.Shutdown()

	if f.configPath != "" {
		w, err := config.NewWatcher(ctx, f.configPath, log.Named("config"), func(c *config.Config) {
			if err := log.SetLevel(c.LogLevel); err != nil {
				log.Warn("invalid log level in config", zap.Error(err))
			}
			svc.SetConfig(c)
		})
		if err != nil {
			log.Warn("config watcher disabled", zap.Error(err))
		} else {
			utils.SafeGo(log.Logger, "config-watcher", w.Start)
			defer w.Stop()
		}
	}

	var assets http.FileSystem
	if !f.noUI {
		assets = http.FS(frontend.Dist())
		if _, err := fs.Stat(frontend.Dist(), "index.html"); err != nil {
			log.Warn("frontend assets missing, serving WebSocket only", zap.Error(err))
			assets = nil
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           display.NewServeMux(display.NewHandler(svc, log.Named("websocket")), assets),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	utils.SafeGo(log.Logger, "http-server", func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errC <- srv.ListenAndServe()
	})

	select {
	case err := <-errC:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func outputPaths(cfg *config.Config) []string {
	if cfg.LogFile != "" {
		return []string{"stderr", cfg.LogFile}
	}
	return []string{"stderr"}
}
