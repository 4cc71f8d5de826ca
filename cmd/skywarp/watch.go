package main

import(
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"skywarp/pkg/exposure"
	"skywarp/pkg/warp"
)

func newWatchCmd(a *app) *cobra.Command {
	var all bool
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [x,y ...]",
		Short: "Re-run the named patches when new exposures arrive",
		Long: `Watches the catalog directory. A sidecar created or rewritten there
triggers a debounced re-run over the configured patches. Watch runs
are incremental: overwriting is forced off, so only visits with
missing outputs get computed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debounce <= 0 {
				return fmt.Errorf("debounce must be positive")
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			cfg.DoOverwrite = false

			ti, err := a.tractInfo()
			if err != nil {
				return err
			}

			patches, err := resolvePatches(ti, args, all)
			if err != nil {
				return err
			}

			depot, err := a.openDepot()
			if err != nil {
				return err
			}
			defer depot.Close()

			// Each pass re-scans the catalog from scratch, so sidecars
			// that appeared since the last pass are selectable.
			rerun := func() {
				cat, err := exposure.OpenCatalog(a.catalogDir, ti.TangentRADeg, ti.TangentDecDeg)
				if err != nil {
					a.log.Error("catalog rescan failed", "err", err)
					return
				}

				orch, err := warp.NewOrchestrator(cfg, cat, cat, nil, depot, a.log)
				if err != nil {
					a.log.Error("orchestrator build failed", "err", err)
					return
				}

				for _, pg := range patches {
					if m, err := orch.RunPatch(pg); err != nil {
						a.log.Error("patch run failed", "patch", pg.Patch(), "err", err)
					} else {
						a.log.Info("patch refreshed", "manifest", m.String())
					}
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(a.catalogDir); err != nil {
				return fmt.Errorf("watch '%s': %v", a.catalogDir, err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			a.log.Info("watching catalog", "dir", a.catalogDir, "patches", len(patches), "debounce", debounce)
			rerun() // cover whatever is already there

			// Debounce: a burst of sidecar writes becomes one re-run,
			// fired once the catalog has been quiet for the settle time.
			pending := time.Time{}
			ticker := time.NewTicker(debounce)
			defer ticker.Stop()

			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !isSidecar(event.Name) {
						continue
					}
					if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
						a.log.Debug("catalog event", "op", event.Op.String(), "file", event.Name)
						pending = time.Now()
					}

				case <-ticker.C:
					if !pending.IsZero() && time.Since(pending) >= debounce {
						pending = time.Time{}
						rerun()
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					a.log.Warn("watcher error", "err", err)

				case <-sigCh:
					a.log.Info("stopping watch")
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "watch every patch in the tract")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "settle time after a catalog change before re-running")
	return cmd
}

func isSidecar(name string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(name)), ".yaml")
}
