package main

import(
	"fmt"

	"github.com/spf13/cobra"

	"skywarp/pkg/exposure"
	"skywarp/pkg/skymap"
	"skywarp/pkg/warp"
)

func newRunCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "run [x,y ...]",
		Short: "Warp every covering visit onto the named patches",
		Long: `Selects the cataloged exposures whose footprints overlap each named
patch, groups them by visit, and accumulates one warp per visit per
configured variant. Already-present outputs are skipped when
overwriting is off.

Examples:
  # Two patches of the sky map's only tract
  skywarp run 1,1 1,2

  # The whole of tract 3, with a config file
  skywarp run --tract 3 --all --config warp.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ti, err := a.tractInfo()
			if err != nil {
				return err
			}

			patches, err := resolvePatches(ti, args, all)
			if err != nil {
				return err
			}

			cat, err := exposure.OpenCatalog(a.catalogDir, ti.TangentRADeg, ti.TangentDecDeg)
			if err != nil {
				return err
			}
			a.log.Info("catalog opened", "dir", a.catalogDir, "exposures", cat.NumExposures())

			depot, err := a.openDepot()
			if err != nil {
				return err
			}
			defer depot.Close()

			orch, err := warp.NewOrchestrator(cfg, cat, cat, nil, depot, a.log)
			if err != nil {
				return err
			}

			return runPatches(cmd, orch, patches)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run every patch in the tract")
	return cmd
}

func runPatches(cmd *cobra.Command, orch *warp.Orchestrator, patches []skymap.PatchGeometry) error {
	for _, pg := range patches {
		m, err := orch.RunPatch(pg)
		if err != nil {
			return fmt.Errorf("patch %s: %w", pg.Patch(), err)
		}

		cmd.Println(m.String())
		for _, ab := range m.Absent {
			cmd.Printf("  absent: %s (%s)\n", ab.ID.String(), ab.Reason)
		}
	}
	return nil
}
