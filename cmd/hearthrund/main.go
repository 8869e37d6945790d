// Command hearthrund is the runtime's server binary: it loads
// config.yaml, probes hardware, wires the engine adapters and the
// Unified Handler, and serves both the HTTP surface and the stdio
// native-messaging transport. Flag parsing, config-watch/debounce, and
// signal-driven shutdown are grounded on frogllm.go's main, generalized
// from one *proxy.ProxyManager to one *handler.Handler feeding two
// transports instead of one reverse proxy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/config"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/engine/llamacpp"
	"github.com/hearthrun/hearthrun/internal/engine/mediapipe"
	"github.com/hearthrun/hearthrun/internal/engine/onnxruntime"
	"github.com/hearthrun/hearthrun/internal/handler"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/httpapi"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/hearthrun/hearthrun/internal/stdio"
)

var (
	version string = "0"
	commit  string = "unknown"
	date    string = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file name")
	listenOverride := flag.String("listen", "", "listen ip/port, overrides config.yaml")
	showVersion := flag.Bool("version", false, "show version of build")
	watchConfig := flag.Bool("watch-config", true, "automatically reload config.yaml on change")
	stdioEnabled := flag.Bool("stdio", false, "serve the native-messaging stdio transport on stdin/stdout (also enabled by stdio_enabled in config.yaml)")
	hfToken := flag.String("hf-token", "", "HuggingFace API token for downloading private/remote models, overrides config.yaml and HUGGINGFACE_TOKEN")

	flag.Parse()

	if *showVersion {
		fmt.Printf("hearthrund %s (%s), built at %s\n", version, commit, date)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if _, statErr := os.Stat(*configPath); statErr != nil {
		if os.IsNotExist(statErr) {
			if err := os.MkdirAll(filepath.Dir(*configPath), 0755); err != nil && filepath.Dir(*configPath) != "." {
				fmt.Printf("Error creating config directory: %v\n", err)
				os.Exit(2)
			}
			if err := config.Save(*configPath, config.Default()); err != nil {
				fmt.Printf("Error creating default config: %v\n", err)
				os.Exit(2)
			}
			fmt.Printf("Created default config at %s\n", *configPath)
		} else {
			fmt.Printf("Error checking config file: %v\n", statErr)
			os.Exit(2)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(2)
	}
	if *listenOverride != "" {
		cfg.Listen = *listenOverride
	}
	if *hfToken != "" {
		cfg.HFToken = *hfToken
	} else if envToken := os.Getenv("HUGGINGFACE_TOKEN"); envToken != "" && cfg.HFToken == "" {
		cfg.HFToken = envToken
	}
	if cfg.HFToken != "" {
		// Remote repo listings fall back to HUGGINGFACE_TOKEN when a request
		// carries no auth_token of its own.
		os.Setenv("HUGGINGFACE_TOKEN", cfg.HFToken)
	}

	inv := hardware.Probe()
	logger.Info("hardware probed",
		"cpu_vendor", inv.CPU.Vendor, "cpu_microarch", inv.CPU.Microarch,
		"gpus", len(inv.GPUs), "npu", inv.NPU != nil)

	adapters := engine.NewRegistry(map[recipe.Engine]engine.Adapter{
		recipe.LlamaCpp:    llamacpp.New(engine.LlamaCpp),
		recipe.BitNet:      llamacpp.New(engine.BitNet),
		recipe.OnnxRuntime: onnxruntime.New(),
		recipe.MediaPipe:   mediapipe.New(),
	})

	h := handler.New(artifact.NewResolver(), inv, adapters, cfg.MaxConcurrentLoads)
	h.SetParams(cfg.DefaultParams.AsSettings())

	srv := &http.Server{Addr: cfg.Listen, Handler: httpapi.New(h, logger)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watchConfig {
		go watchConfigFile(ctx, *configPath, logger, func(newCfg config.Config) {
			h.SetParams(newCfg.DefaultParams.AsSettings())
			logger.Info("config reloaded", "path", *configPath)
		})
	}

	go func() {
		logger.Info("hearthrund listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("fatal server error: %v", err)
		}
	}()

	if err := notifyReady(); err != nil {
		logger.Debug("systemd notify skipped", "err", err)
	}

	if *stdioEnabled || cfg.StdioEnabled {
		go func() {
			dispatcher := &stdio.HandlerDispatcher{H: h}
			if err := stdio.Serve(os.Stdin, os.Stdout, dispatcher, logger); err != nil {
				logger.Error("stdio transport stopped", "err", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}

// watchConfigFile debounces filesystem events on configPath the same way
// frogllm.go's fsnotify loop does, calling onReload with the freshly
// parsed config after each settle.
func watchConfigFile(ctx context.Context, configPath string, logger *slog.Logger, onReload func(config.Config)) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		logger.Warn("config watch disabled: could not resolve absolute path", "err", err)
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch disabled: could not create watcher", "err", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		logger.Warn("config watch disabled: could not watch directory", "err", err)
		return
	}

	var debounce *time.Timer
	reload := func() {
		newCfg, err := config.Load(configPath)
		if err != nil {
			logger.Warn("config reload failed", "err", err)
			return
		}
		onReload(newCfg)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name != absPath || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(time.Second, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher error", "err", err)
		}
	}
}
