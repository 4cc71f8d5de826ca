package main

import(
	"time"

	"github.com/spf13/cobra"

	"skywarp/pkg/skymap"
)

func newLsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <x,y> [x,y ...]",
		Short: "List the depot's warps for the named patches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, err := a.tractInfo()
			if err != nil {
				return err
			}

			depot, err := a.openDepot()
			if err != nil {
				return err
			}
			defer depot.Close()

			for _, arg := range args {
				px, py, err := skymap.ParsePatchIndex(arg)
				if err != nil {
					return err
				}
				pg, err := ti.PatchGeometry(px, py)
				if err != nil {
					return err
				}

				entries, err := depot.List(ti.ID, pg.Patch())
				if err != nil {
					return err
				}

				cmd.Printf("tract %d patch %s: %d warps\n", ti.ID, pg.Patch(), len(entries))
				for _, e := range entries {
					cmd.Printf("  visit %6d %-10s %9d good pixels  %s  %s\n",
						e.ID.Visit, e.ID.Type, e.GoodPix,
						e.CreatedAt.Format(time.RFC3339), e.Path)
				}
			}
			return nil
		},
	}
	return cmd
}
