// hookscan is the Yul-IR Uniswap v4 hook vulnerability scanner's CLI
// entrypoint (spec.md §6), flag surface grounded on
// original_source/uniscan/__main__.py and wired with the same
// gopkg.in/urfave/cli.v1 + github.com/fatih/color +
// github.com/tliron/commonlog stack cmd/kanso-cli and cmd/kanso-lsp use.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	"gopkg.in/urfave/cli.v1"

	"github.com/blocksecteam/hookscan/cfgdot"
	"github.com/blocksecteam/hookscan/hookerr"
	"github.com/blocksecteam/hookscan/report"
	"github.com/blocksecteam/hookscan/yulast"
)

var (
	modeFlag = cli.StringFlag{
		Name:  "mode, m",
		Usage: "\"detect\" to run the vulnerability detectors, \"cfg\" to dump each function's control-flow graph",
		Value: "detect",
	}
	contractFlag = cli.StringFlag{
		Name:  "contract, c",
		Usage: "contract name to select, required when the input has more than one",
	}
	detectorFlag = cli.StringSliceFlag{
		Name:  "detector, d",
		Usage: "detector name to run (repeatable); defaults to every built-in detector",
	}
	outputFlag = cli.StringFlag{
		Name:  "output, o",
		Usage: "file to write the JSON result to (in cfg mode, a directory for the .dot files); defaults to stdout",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout-limit-per-round",
		Usage: "wall-clock budget for a single traversal round before it is abandoned",
		Value: 60 * time.Second,
	}
	solcBinFlag = cli.StringFlag{
		Name:  "solc-bin",
		Usage: "solc binary to invoke when the input is a .sol file",
		Value: "solc",
	}
	basePathFlag = cli.StringFlag{
		Name:  "base-path",
		Usage: "solc --base-path to use when compiling a .sol file",
	}
	includePathFlag = cli.StringSliceFlag{
		Name:  "include-path",
		Usage: "solc --include-path to use when compiling a .sol file (repeatable)",
	}
	remappingsFileFlag = cli.StringFlag{
		Name:  "remappings-file",
		Usage: "import remappings file to use when compiling a .sol file",
	}
	overwriteFlag = cli.BoolFlag{
		Name:  "overwrite",
		Usage: "overwrite --output if it already exists",
	}
	silentFlag = cli.BoolFlag{
		Name:  "silent",
		Usage: "on failure, print a JSON {error, error_type} document instead of a diagnostic and exit 0",
	}
	onlyNotProtectedFlag = cli.BoolFlag{
		Name:  "only-run-not-protected",
		Usage: "skip a detector's callback once its path is protected by an access-control guard",
	}
)

// parseYul is the concrete value plugged into the ParseYul seam. The
// Yul lexer/parser itself stays a black-box external collaborator
// (spec.md §6: "Treated as a black box... Any parse, ambiguity, or
// full-context event is a fatal error") -- this module models its
// output contract (package yulast) but never re-implements an
// ANTLR-generated grammar, so a real build wires this to that
// generated parser's binding. Left here as the one seam a deployment
// must complete.
var parseYul ParseYul = func(source, file string) (*yulast.Object, error) {
	return nil, hookerr.New(hookerr.ParseError, "no Yul parser wired into this build; "+file+" was never lexed")
}

func main() {
	app := cli.NewApp()
	app.Name = "hookscan"
	app.Usage = "scan a compiled Uniswap v4 hook's Yul IR for known vulnerability patterns"
	app.Flags = []cli.Flag{
		modeFlag, contractFlag, detectorFlag, outputFlag, timeoutFlag,
		solcBinFlag, basePathFlag, includePathFlag, remappingsFileFlag,
		overwriteFlag, silentFlag, onlyNotProtectedFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		color.Red("hookscan: %s", err)
		os.Exit(1)
	}
}

// run is the cli.App action: parse flags, invoke Run, and render its
// result, recovering into a silent JSON error document under --silent
// the way execute_and_output wraps the whole CLI body in a try/except.
func run(c *cli.Context) (runErr error) {
	silent := c.Bool(silentFlag.Name)

	if silent {
		defer func() {
			if r := recover(); r != nil {
				writeSilentError(c, fmt.Errorf("panic: %v", r))
				runErr = nil
			}
		}()
	}

	input, contractFromArg := splitInputArg(c.Args().First())
	if input == "" {
		return cli.NewExitError("an INPUT_FILE argument is required", 2)
	}
	contract := c.String(contractFlag.Name)
	if contract == "" {
		contract = contractFromArg
	}

	cfg := Config{
		Input:                input,
		Mode:                 c.String(modeFlag.Name),
		Contract:             contract,
		Detectors:            c.StringSlice(detectorFlag.Name),
		Output:               c.String(outputFlag.Name),
		TimeoutLimitPerRound: c.Duration(timeoutFlag.Name),
		SolcBin:              c.String(solcBinFlag.Name),
		BasePath:             c.String(basePathFlag.Name),
		IncludePaths:         c.StringSlice(includePathFlag.Name),
		RemappingsFile:       c.String(remappingsFileFlag.Name),
		Overwrite:            c.Bool(overwriteFlag.Name),
		Silent:               silent,
		OnlyRunNotProtected:  c.Bool(onlyNotProtectedFlag.Name),
	}

	commonlog.Configure(1, nil)
	logger := commonlog.GetLogger("hookscan")

	out, graphs, err := Run(cfg, parseYul, logger)
	if err != nil {
		if silent {
			writeSilentError(c, err)
			return nil
		}
		return translateErr(err)
	}

	if cfg.Mode == "cfg" {
		return writeGraphs(cfg, graphs)
	}
	return writeReport(cfg, out)
}

// splitInputArg splits the "INPUT_FILE[:CONTRACT_NAME]" positional
// argument spec.md §6 describes.
func splitInputArg(arg string) (input, contract string) {
	idx := strings.LastIndexByte(arg, ':')
	if idx < 0 {
		return arg, ""
	}
	return arg[:idx], arg[idx+1:]
}

func writeSilentError(c *cli.Context, err error) {
	errType := "Error"
	if he, ok := err.(*hookerr.Error); ok {
		errType = he.Kind.String()
	}
	payload, marshalErr := report.Marshal(report.ErrorOutput{Error: err.Error(), ErrorType: errType})
	if marshalErr != nil {
		payload = []byte(`{"error":"failed to marshal error"}`)
	}
	writeOut(c.String(outputFlag.Name), c.Bool(overwriteFlag.Name), payload)
}

func translateErr(err error) error {
	if he, ok := err.(*hookerr.Error); ok {
		return cli.NewExitError(he.Error(), exitCodeFor(he.Kind))
	}
	return cli.NewExitError(err.Error(), 1)
}

func exitCodeFor(kind hookerr.Kind) int {
	switch kind {
	case hookerr.CLIError:
		return 2
	case hookerr.CompileError:
		return 3
	case hookerr.ParseError, hookerr.LiftError, hookerr.NormalizationError:
		return 4
	default:
		return 1
	}
}

func writeReport(cfg Config, out *report.Output) error {
	payload, err := report.Marshal(out)
	if err != nil {
		return cli.NewExitError("marshaling result: "+err.Error(), 1)
	}
	return writeOut(cfg.Output, cfg.Overwrite, payload)
}

// writeGraphs mirrors generate_cfg's behavior: with --output it writes
// one "<name>.dot" file per function under that directory (creating it
// if needed); without --output it writes each graph's dot source to
// stdout in turn, separated by its name as a comment line.
func writeGraphs(cfg Config, graphs []cfgdot.Graph) error {
	if cfg.Output == "" {
		for _, g := range graphs {
			fmt.Printf("// %s\n%s\n", g.Name, g.Source)
		}
		return nil
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return cli.NewExitError("creating "+cfg.Output+": "+err.Error(), 1)
	}
	for _, g := range graphs {
		path := cfg.Output + "/" + g.Name + ".dot"
		if !cfg.Overwrite {
			if _, err := os.Stat(path); err == nil {
				return cli.NewExitError(path+" already exists; pass --overwrite to replace it", 2)
			}
		}
		if err := os.WriteFile(path, []byte(g.Source), 0o644); err != nil {
			return cli.NewExitError("writing "+path+": "+err.Error(), 1)
		}
	}
	return nil
}

func writeOut(path string, overwrite bool, payload []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(payload, '\n'))
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return cli.NewExitError(path+" already exists; pass --overwrite to replace it", 2)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return cli.NewExitError("writing "+path+": "+err.Error(), 1)
	}
	return nil
}
