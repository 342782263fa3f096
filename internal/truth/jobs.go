package truth

import (
	"fmt"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

// Operations returns one replace operation per region with an efficiency
// entry, setting the region's JSON path to the expected event count.
func Operations(def *PatchDef, py PointYields) ([]workspace.Operation, error) {
	regions := def.Regions(ColumnEff)
	if len(regions) == 0 {
		return nil, fmt.Errorf("patch definition has no %q column entries", ColumnEff)
	}
	ops := make([]workspace.Operation, 0, len(regions))
	for _, r := range regions {
		path, ok := def.Value(ColumnJSONPath, r)
		if !ok || path == "" {
			return nil, fmt.Errorf("region %s has no %s", r, ColumnJSONPath)
		}
		y, ok := py.Regions[r]
		if !ok {
			return nil, fmt.Errorf("point %s has no yield for region %s", py.Point.Token(), r)
		}
		op, err := workspace.Replace(path, y.Events)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Jobs returns one fit job per point, patching the background-only likelihood
// with the point's expected yields.
func Jobs(layout analysis.Layout, bkg []byte, def *PatchDef, points []PointYields, prune workspace.PruneOptions) []fitdriver.Job {
	jobs := make([]fitdriver.Job, 0, len(points))
	for _, py := range points {
		jobs = append(jobs, fitdriver.Job{
			Name:   py.Point.Token(),
			Point:  py.Point,
			Output: layout.TruthResultPath(py.Point.Token()),
			Prepare: func() ([]byte, error) {
				ops, err := Operations(def, py)
				if err != nil {
					return nil, err
				}
				ws, err := workspace.Apply(bkg, ops)
				if err != nil {
					return nil, err
				}
				return workspace.Prune(ws, prune)
			},
		})
	}
	return jobs
}
