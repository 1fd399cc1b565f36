package uniswaphook

import "github.com/blocksecteam/hookscan/detector"

// AllDetectors is the default registry a caller passes to
// detector.Scheduler.Register when no explicit `-d` selection narrows
// it (spec.md §4.8). UniswapRugHook is deliberately excluded -- its source
// detector is marked prototype and was never wired into the default
// set either; it remains constructible and tested, but only reachable
// by naming it explicitly.
func AllDetectors() []detector.Detector {
	return []detector.Detector{
		&UniswapGetCallback{},
		&UniswapPublicCallback{},
		&UniswapPublicHook{},
		&UniswapUpgradableHook{},
		&UniswapSuicidalHook{},
	}
}
