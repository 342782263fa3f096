package fitdriver

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/security"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

// PatchJobs returns one job per patch of ps. Each job applies its patch to
// the background-only workspace bkg and prunes the result.
func PatchJobs(layout analysis.Layout, bkg []byte, ps *workspace.PatchSet, prune workspace.PruneOptions) ([]Job, error) {
	jobs := make([]Job, 0, len(ps.Patches))
	for _, p := range ps.Patches {
		out := layout.ResultPath(security.SanitizeName(p.Name()))
		if err := security.WithinDir(out, layout.Results()); err != nil {
			return nil, fmt.Errorf("patch %s: %w", p.Name(), err)
		}
		pt, err := p.Point()
		if err != nil {
			monitoring.Logf("patch %s: no mass point (%v)", p.Name(), err)
		}
		jobs = append(jobs, Job{
			Name:   p.Name(),
			Point:  pt,
			Output: out,
			Prepare: func() ([]byte, error) {
				ws, err := workspace.ApplyPatch(bkg, p)
				if err != nil {
					return nil, err
				}
				return workspace.Prune(ws, prune)
			},
		})
	}
	return jobs, nil
}

// WorkspaceJobs returns one job per full workspace under the layout's
// workspaces directory, ordered by mass point. A file name without a mass
// token aborts.
func WorkspaceJobs(fsys fsutil.FileSystem, layout analysis.Layout, prune workspace.PruneOptions) ([]Job, error) {
	pattern := filepath.Join(layout.Workspaces(), "*.json")
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}

	jobs := make([]Job, 0, len(paths))
	for _, path := range paths {
		pt, err := masspoint.Parse(path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{
			Name:   filepath.Base(path),
			Point:  pt,
			Output: layout.ResultPath(pt.Token()),
			Prepare: func() ([]byte, error) {
				ws, err := workspace.Load(fsys, path)
				if err != nil {
					return nil, err
				}
				return workspace.Prune(ws, prune)
			},
		})
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Point.Less(jobs[j].Point) })
	return jobs, nil
}
