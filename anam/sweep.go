package anam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultLevelDir is the per-level directory layout under a sweep base directory.
const DefaultLevelDir = "traces_c%d"

// DefaultLevels are the contention levels (thread counts) the benchmark captures.
var DefaultLevels = []int{1, 2, 4, 8, 16, 32, 64}

// Level is one contention level of a sweep and the directory holding its traces.
type Level struct {
	Contention int
	Dir        string
}

// LevelDirs expands layout (a fmt pattern taking the contention) under base.
func LevelDirs(base, layout string, contentions []int) []Level {
	if layout == "" {
		layout = DefaultLevelDir
	}
	levels := make([]Level, 0, len(contentions))
	for _, c := range contentions {
		levels = append(levels, Level{Contention: c, Dir: filepath.Join(base, fmt.Sprintf(layout, c))})
	}
	return levels
}

// Point is one (contention, H_norm) sample of a sweep.
type Point struct {
	Contention int     `yaml:"contention" msgpack:"contention"`
	HNorm      float64 `yaml:"h_norm" msgpack:"h_norm"`
	Events     int     `yaml:"events" msgpack:"events"`
	Digest     string  `yaml:"digest" msgpack:"digest"`
	Dir        string  `yaml:"dir" msgpack:"dir"`
}

// SweepOptions tunes Sweep.
type SweepOptions struct {
	Jobs int // concurrent levels; <= 0 means GOMAXPROCS
}

// Sweep analyzes each level as an independent unit. Levels whose directory is
// missing, or which hold no data, are skipped. Points and results come back
// in ascending contention order regardless of completion order.
func (a *Analyzer) Sweep(ctx context.Context, levels []Level, opts SweepOptions) ([]Point, []*Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	log := a.logger()

	// one slot per level; each goroutine writes only its own index
	results := make([]*Result, len(levels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(levels))))
	for i, lv := range levels {
		g.Go(func() error {
			info, err := os.Stat(lv.Dir)
			if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
				log.Infof("Skipping %s (not found)", lv.Dir)
				return nil
			}
			if err != nil {
				return fmt.Errorf("contention level %d: %w", lv.Contention, err)
			}

			log.Infof("Processing contention level %d...", lv.Contention)
			res, err := a.AnalyzeDir(gctx, lv.Dir)
			if err != nil {
				return fmt.Errorf("contention level %d: %w", lv.Contention, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	order := make([]int, 0, len(levels))
	for i, res := range results {
		if res != nil && res.HasData() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(x, y int) bool {
		return levels[order[x]].Contention < levels[order[y]].Contention
	})

	points := make([]Point, 0, len(order))
	kept := make([]*Result, 0, len(order))
	for _, i := range order {
		res := results[i]
		kept = append(kept, res)
		points = append(points, Point{
			Contention: levels[i].Contention,
			HNorm:      res.Entropy.HNorm,
			Events:     res.Stats.Total,
			Digest:     res.Digest,
			Dir:        res.Dir,
		})
	}
	return points, kept, nil
}
