// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tochemey/exthost/eventstream"
	"github.com/tochemey/exthost/host"
	"github.com/tochemey/exthost/log"
	"github.com/tochemey/exthost/manifest"
	"github.com/tochemey/exthost/storage"
	"github.com/tochemey/exthost/workspace"
)

const eventsPollInterval = 250 * time.Millisecond

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the extension host until interrupted",
		Long: `Run loads the extension manifests, starts the extension host and keeps it
running until SIGINT or SIGTERM is received. Extensions are then deactivated
and the process exits.

Examples:
  # Run the extensions of ./extensions against the current folder
  exthost run --extensions-dir ./extensions --folder .

  # Persist extension state and pick up manifest changes
  exthost run --extensions-dir ./extensions --state-dir ./state --watch

  # Override the configuration through the environment
  EXTHOST_LOG_LEVEL=debug exthost run --config exthost.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.NewZap(log.ParseLevel(cfg.LogLevel), cmd.OutOrStdout())
			return run(ctx, cfg, logger, os.Exit)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice(flagFolder, nil, "workspace folder, repeatable")
	flags.String(flagWorkspaceID, "default", "workspace identifier used to scope the extension state")
	flags.Bool(flagAutoStart, false, "start the extension host as soon as it is initialized")
	flags.Bool(flagDeferredStartup, false, "activate the onStartupFinished extensions in time slices")
	flags.String(flagRemoteAuthority, "", "remote authority the host runs against")
	flags.String(flagStateDir, "", "directory of the extension state database (in memory when empty)")
	flags.Bool(flagWatch, false, "apply extension manifest changes while running")
	flags.Duration(flagEagerActivationTimeout, host.DefaultEagerActivationTimeout, "eager activation timeout")
	flags.Duration(flagTerminationTimeout, host.DefaultTerminationTimeout, "deactivation timeout on shutdown")
	return cmd
}

// run starts the extension host and terminates it once ctx is done.
func run(ctx context.Context, cfg *Config, logger log.Logger, exit func(code int)) error {
	set, err := manifest.Load(cfg.ExtensionsDir)
	if set == nil {
		return err
	}
	if err != nil {
		logger.Warnf("some extension manifests were skipped: %v", err)
	}
	logger.Infof("%d extensions found in %s", set.Len(), cfg.ExtensionsDir)

	var store storage.Store = storage.NewMemoryStore()
	if cfg.StateDir != "" {
		bolt, err := storage.NewBoltStore(cfg.StateDir)
		if err != nil {
			return err
		}
		store = bolt
	}

	opts := []host.Option{
		host.WithLogger(logger),
		host.WithExtensions(set.Descriptors(), set.IDs()),
		host.WithStore(store),
		host.WithExit(exit),
		host.WithPID(os.Getpid()),
		host.WithEagerActivationTimeout(cfg.EagerActivationTimeout),
		host.WithTerminationTimeout(cfg.TerminationTimeout),
	}
	if cfg.AutoStart {
		opts = append(opts, host.WithAutoStart())
	}
	if cfg.DeferredStartup {
		opts = append(opts, host.WithDeferredStartupFinished())
	}
	if cfg.RemoteAuthority != "" {
		opts = append(opts, host.WithRemoteAuthority(cfg.RemoteAuthority, true))
	}
	if cfg.Watch {
		opts = append(opts, host.WithDeactivateOnRemove())
	}

	extHost, err := host.New(workspace.NewStatic(cfg.WorkspaceID, cfg.Folders...), opts...)
	if err != nil {
		_ = store.Close()
		return err
	}

	sub := extHost.Events().AddSubscriber()
	extHost.Events().Subscribe(sub, host.TopicDidActivate)
	extHost.Events().Subscribe(sub, host.TopicActivationError)
	go reportActivations(sub, logger)

	if err := extHost.Initialize(ctx); err != nil {
		logger.Warnf("extension host initialization failed, running degraded: %v", err)
	}
	if !cfg.AutoStart {
		if err := extHost.StartExtensionHost(ctx); err != nil {
			logger.Errorf("failed to start the extension host: %v", err)
		}
	}

	var watcher *manifest.Watcher
	if cfg.Watch {
		watcher = manifest.NewWatcher(cfg.ExtensionsDir, set, extHost.DeltaExtensions, manifest.WithLogger(logger))
		if err := watcher.Start(ctx); err != nil {
			logger.Warnf("extension manifests will not be watched: %v", err)
			watcher = nil
		}
	}

	<-ctx.Done()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warnf("failed to stop the manifest watcher: %v", err)
		}
	}
	extHost.Terminate("signal", 0)
	return nil
}

// reportActivations logs activation outcomes until the stream is closed.
func reportActivations(sub eventstream.Subscriber, logger log.Logger) {
	for sub.Active() {
		message, ok := sub.Poll(eventsPollInterval)
		if !ok {
			continue
		}
		switch event := message.Payload().(type) {
		case *host.DidActivateEvent:
			logger.Infof("extension %s activated by %s in %s", event.ID, event.Reason.ActivationEvent, event.Times.ActivateResolvedTime)
		case *host.ActivationErrorEvent:
			logger.Errorf("extension %s failed to activate: %v", event.ID, event.Err)
		}
	}
}
