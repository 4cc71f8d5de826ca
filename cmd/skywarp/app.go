package main

import(
	"fmt"

	"skywarp/pkg/skymap"
	"skywarp/pkg/store"
	"skywarp/pkg/warp"
)

func (a *app)loadConfig() (warp.Config, error) {
	if a.configFile == "" {
		return warp.NewConfig(), nil
	}
	return warp.LoadConfig(a.configFile)
}

// tractInfo loads the sky map and picks the working tract. With no
// --tract given, a single-tract sky map needs no choosing.
func (a *app)tractInfo() (skymap.TractInfo, error) {
	sm, err := skymap.LoadSkyMap(a.skymapFile)
	if err != nil {
		return skymap.TractInfo{}, err
	}

	if a.tract < 0 {
		if len(sm.Tracts) == 1 {
			return sm.Tracts[0], nil
		}
		return skymap.TractInfo{}, fmt.Errorf("sky map '%s' has %d tracts; pick one with --tract",
			sm.Name, len(sm.Tracts))
	}

	return sm.Tract(a.tract)
}

func (a *app)openDepot() (*store.Depot, error) {
	return store.OpenDepot(a.depotDir, a.log)
}

// resolvePatches turns "x,y" args (or --all) into patch geometries.
func resolvePatches(ti skymap.TractInfo, args []string, all bool) ([]skymap.PatchGeometry, error) {
	if all {
		patches := []skymap.PatchGeometry{}
		for py:=0; py<ti.NumPatchesY; py++ {
			for px:=0; px<ti.NumPatchesX; px++ {
				pg, err := ti.PatchGeometry(px, py)
				if err != nil {
					return nil, err
				}
				patches = append(patches, pg)
			}
		}
		return patches, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("name patches as x,y args, or pass --all")
	}

	patches := make([]skymap.PatchGeometry, 0, len(args))
	for _, arg := range args {
		px, py, err := skymap.ParsePatchIndex(arg)
		if err != nil {
			return nil, err
		}
		pg, err := ti.PatchGeometry(px, py)
		if err != nil {
			return nil, err
		}
		patches = append(patches, pg)
	}
	return patches, nil
}
