// Package main is the hookscan CLI (spec.md §6), wiring the compiler
// loader, the Yul-parser collaborator, the lift/normalize/mutability
// pipeline, the detector scheduler, and the two output renderers
// (report, cfgdot) the same way
// original_source/uniscan/__main__.py's execute_and_output does.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tliron/commonlog"

	"github.com/blocksecteam/hookscan/cfgdot"
	"github.com/blocksecteam/hookscan/compiler"
	"github.com/blocksecteam/hookscan/detector"
	"github.com/blocksecteam/hookscan/detector/uniswaphook"
	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/lift"
	"github.com/blocksecteam/hookscan/mutability"
	"github.com/blocksecteam/hookscan/normalize"
	"github.com/blocksecteam/hookscan/report"
	"github.com/blocksecteam/hookscan/traversal"
	"github.com/blocksecteam/hookscan/yulast"
)

// ParseYul is the hook the §6 "Yul parser (collaborator)" black box is
// injected through: production code never parses Yul text itself (see
// yulast's package doc), so Run takes this as a parameter rather than
// importing a concrete parser.
type ParseYul func(source, file string) (*yulast.Object, error)

// Config mirrors the parsed CLI flags (spec.md §6).
type Config struct {
	Input               string
	Mode                string // "detect" or "cfg"
	Contract            string
	Detectors           []string // nil means every registered built-in
	Output              string
	TimeoutLimitPerRound time.Duration
	SolcBin              string
	BasePath             string
	IncludePaths         []string
	RemappingsFile       string
	Overwrite            bool
	Silent               bool
	OnlyRunNotProtected  bool
}

// detectorRegistry maps a -d/--detector name to a zero-value
// constructor. UniswapRugHook is included here even though
// uniswaphook.AllDetectors excludes it from the default set (SPEC_FULL.md:
// "exists as a prototype... not registered" -- it must still be
// reachable by naming it explicitly).
var detectorRegistry = map[string]func() detector.Detector{
	"UniswapGetCallback":    func() detector.Detector { return &uniswaphook.UniswapGetCallback{} },
	"UniswapPublicCallback": func() detector.Detector { return &uniswaphook.UniswapPublicCallback{} },
	"UniswapPublicHook":     func() detector.Detector { return &uniswaphook.UniswapPublicHook{} },
	"UniswapUpgradableHook": func() detector.Detector { return &uniswaphook.UniswapUpgradableHook{} },
	"UniswapSuicidalHook":   func() detector.Detector { return &uniswaphook.UniswapSuicidalHook{} },
	"UniswapRugHook":        func() detector.Detector { return &uniswaphook.UniswapRugHook{} },
}

// resolveDetectors turns cfg.Detectors into concrete instances,
// defaulting to uniswaphook.AllDetectors() when the flag was omitted
// (execute_and_output's `detectors = all_detectors` branch).
func resolveDetectors(names []string) ([]detector.Detector, error) {
	if len(names) == 0 {
		return uniswaphook.AllDetectors(), nil
	}
	out := make([]detector.Detector, 0, len(names))
	for _, name := range names {
		factory, ok := detectorRegistry[name]
		if !ok {
			return nil, hookerr.New(hookerr.CLIError, "unknown detector: "+name)
		}
		out = append(out, factory())
	}
	return out, nil
}

// loadContract resolves cfg.Input into a ready-to-scan *ir.Contract:
// standard-output JSON (from stdin, a .json file, or compiling a .sol
// file first), contract selection, then the injected Yul parse and the
// lift/normalize/mutability pipeline (hookscan.py's generate_contract
// plus the CLI's own pipeline wiring).
func loadContract(cfg Config, parseYul ParseYul) (*ir.Contract, error) {
	var stdOutRaw []byte
	var err error

	switch {
	case cfg.Input == "-":
		stdOutRaw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, hookerr.Wrap(hookerr.CLIError, "reading stdin", err)
		}
	case hasSuffix(cfg.Input, ".json"):
		stdOutRaw, err = os.ReadFile(cfg.Input)
		if err != nil {
			return nil, hookerr.Wrap(hookerr.CLIError, "reading "+cfg.Input, err)
		}
	case hasSuffix(cfg.Input, ".sol"):
		stdIn, err := compiler.GenerateStandardInput(cfg.Input, compiler.Options{
			SolcBin:        cfg.SolcBin,
			BasePath:       cfg.BasePath,
			IncludePaths:   cfg.IncludePaths,
			RemappingsFile: cfg.RemappingsFile,
			ContractName:   cfg.Contract,
		})
		if err != nil {
			return nil, err
		}
		std, err := compiler.CompileStandardJSON(stdIn, cfg.SolcBin)
		if err != nil {
			return nil, err
		}
		return finishLoad(std, cfg.Contract, parseYul)
	default:
		return nil, hookerr.New(hookerr.CLIError, "invalid input file: "+cfg.Input)
	}

	std, err := compiler.ParseStandardOutput(stdOutRaw)
	if err != nil {
		return nil, err
	}
	return finishLoad(std, cfg.Contract, parseYul)
}

func finishLoad(std *compiler.StandardOutputJSON, contractName string, parseYul ParseYul) (*ir.Contract, error) {
	sel, err := compiler.SelectContract(std, contractName)
	if err != nil {
		return nil, err
	}
	obj, err := parseYul(sel.IR, sel.File)
	if err != nil {
		return nil, hookerr.Wrap(hookerr.ParseError, "parsing Yul IR for "+sel.File+":"+sel.Name, err)
	}
	contract, err := lift.Lift(obj, sel.File)
	if err != nil {
		return nil, err
	}
	if err := normalize.Normalize(contract); err != nil {
		return nil, err
	}
	mutability.Analyze(contract)
	contract.IRText = sel.IR
	return contract, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// Run drives one full CLI invocation: load, then either render a CFG
// dot dump (mode "cfg") or run the detector schedule and render a
// report.Output (mode "detect"), matching
// original_source/uniscan/__main__.py's execute_and_output.
func Run(cfg Config, parseYul ParseYul, logger commonlog.Logger) (*report.Output, []cfgdot.Graph, error) {
	contract, err := loadContract(cfg, parseYul)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Mode == "cfg" {
		return nil, cfgdot.Render(contract), nil
	}

	detectors, err := resolveDetectors(cfg.Detectors)
	if err != nil {
		return nil, nil, err
	}

	sched := &detector.Scheduler{
		OnlyRunNotProtected: cfg.OnlyRunNotProtected,
		RoundLimit:          cfg.TimeoutLimitPerRound,
		OnSkip: func(detectorName string, key traversal.CallbackKey, reason string) {
			if logger != nil {
				logger.Debugf("%s skipped a path (key kind %s): %s", detectorName, key.Kind, reason)
			}
		},
	}
	sched.Register(detectors...)
	result := sched.Run(contract)

	out := report.Render(result, report.DescriptionsFor(detectors))
	return out, nil, nil
}
