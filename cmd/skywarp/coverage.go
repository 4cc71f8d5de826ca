package main

import(
	"fmt"

	"github.com/spf13/cobra"

	"skywarp/pkg/render"
	"skywarp/pkg/skymap"
	"skywarp/pkg/warp"
)

func newCoverageCmd(a *app) *cobra.Command {
	var visit int
	var variant string
	var outFile string
	var valuesFile string

	cmd := &cobra.Command{
		Use:   "coverage <x,y>",
		Short: "Render a stored warp's coverage depth as a heat map",
		Long: `Loads one warp from the depot, prints its input summary and depth
histogram, and writes a heat map PNG of per-pixel contributor counts.

Example:
  skywarp coverage 1,1 --visit 7 --variant direct -o visit7.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseVariant(variant)
			if err != nil {
				return err
			}

			ti, err := a.tractInfo()
			if err != nil {
				return err
			}

			px, py, err := skymap.ParsePatchIndex(args[0])
			if err != nil {
				return err
			}
			pg, err := ti.PatchGeometry(px, py)
			if err != nil {
				return err
			}

			depot, err := a.openDepot()
			if err != nil {
				return err
			}
			defer depot.Close()

			id := warp.OutputID{Tract: ti.ID, Patch: pg.Patch(), Visit: visit, Type: t}
			cv, err := depot.Load(id)
			if err != nil {
				return err
			}

			depth, err := render.CanvasDepthMap(cv)
			if err != nil {
				return err
			}
			ds := render.NewDepthStats(&depth)

			cmd.Println(cv.Inputs.String())
			cmd.Println(ds.String())

			if outFile == "" {
				outFile = fmt.Sprintf("coverage-%06d-%s.png", visit, t)
			}
			if err := render.WriteHeatmapPNG(&depth, id.String(), outFile); err != nil {
				return err
			}
			cmd.Printf("heat map written to %s\n", outFile)

			if valuesFile != "" {
				if err := render.WriteFramePNG(&cv.Frame, id.String(), valuesFile); err != nil {
					return err
				}
				cmd.Printf("value render written to %s\n", valuesFile)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&visit, "visit", 0, "visit id of the stored warp")
	cmd.Flags().StringVar(&variant, "variant", "direct", "warp variant (direct|psfMatched)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "heat map PNG path (default coverage-<visit>-<variant>.png)")
	cmd.Flags().StringVar(&valuesFile, "values", "", "also write a grey-scale render of the warp's values here")
	cmd.MarkFlagRequired("visit")

	return cmd
}

func parseVariant(s string) (warp.Type, error) {
	switch s {
	case string(warp.Direct):
		return warp.Direct, nil
	case string(warp.PsfMatched):
		return warp.PsfMatched, nil
	}
	return "", fmt.Errorf("unknown variant '%s' (want direct or psfMatched)", s)
}
