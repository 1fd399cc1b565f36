// Package compiler loads the solc standard-output (and optional
// standard-input) JSON the §6 "Compiler input" collaborator contract
// describes, and -- when the CLI is handed a `.sol` file instead of a
// pre-compiled JSON -- shells out to an external `solc` binary to
// produce one, grounded on
// original_source/uniscan/utils/compiler.py and
// original_source/hookscan/hookscan.py's Hookscan.generate_contract.
//
// The Yul text this package extracts is never parsed here: per spec.md
// §6 the Yul parser is its own black-box collaborator, left to the
// caller (cmd/hookscan wires it as a ParseYul function value).
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/blocksecteam/hookscan/hookerr"
)

// StandardOutputJSON is the subset of solc's `--standard-json` output
// this package reads: one IR blob per (file, contract name) pair.
type StandardOutputJSON struct {
	Contracts map[string]map[string]struct {
		IR string `json:"ir"`
	} `json:"contracts"`
	Errors []struct {
		Severity         string `json:"severity"`
		FormattedMessage string `json:"formattedMessage"`
	} `json:"errors"`
}

// StandardInputJSON is the subset of solc's `--standard-json` input
// this package reads and, when compiling from `.sol`, produces.
type StandardInputJSON struct {
	Language string                    `json:"language"`
	Sources  map[string]SourceContent  `json:"sources"`
	Settings StandardInputJSONSettings `json:"settings"`
}

type SourceContent struct {
	Content string `json:"content"`
}

type StandardInputJSONSettings struct {
	Remappings     []string                       `json:"remappings,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection,omitempty"`
}

// Selected is the single (file, contract, IR text) triple
// hookscan.py's generate_contract picks out of a standard-output JSON.
type Selected struct {
	File string
	Name string
	IR   string
}

// SelectContract walks std's contracts map and returns the single entry
// with non-empty IR, restricted to contractName when it's non-empty.
// More than one candidate (ambiguous without a name filter) or zero
// candidates is a fatal CompileError, matching the source's asserts.
func SelectContract(std *StandardOutputJSON, contractName string) (*Selected, error) {
	var found *Selected
	for file, byName := range std.Contracts {
		for name, c := range byName {
			if contractName != "" && contractName != name {
				continue
			}
			if c.IR == "" {
				continue
			}
			if found != nil {
				if contractName == "" {
					return nil, hookerr.New(hookerr.CompileError, "multiple contracts found, please specify the contract name")
				}
				return nil, hookerr.New(hookerr.CompileError,
					fmt.Sprintf("multiple contracts with the same name: %s:%s and %s:%s", found.File, found.Name, file, name))
			}
			found = &Selected{File: file, Name: name, IR: c.IR}
		}
	}
	if found == nil {
		return nil, hookerr.New(hookerr.CompileError, "no contract found")
	}
	return found, nil
}

// ParseStandardOutput decodes raw solc `--standard-json` output,
// surfacing any compiler errors array as a single CompileError.
func ParseStandardOutput(raw []byte) (*StandardOutputJSON, error) {
	var std StandardOutputJSON
	if err := json.Unmarshal(raw, &std); err != nil {
		return nil, hookerr.Wrap(hookerr.CompileError, "invalid standard-output JSON", err)
	}
	if len(std.Contracts) == 0 && len(std.Errors) > 0 {
		var msgs []string
		for _, e := range std.Errors {
			if e.Severity == "error" {
				msgs = append(msgs, e.FormattedMessage)
			}
		}
		return nil, hookerr.New(hookerr.CompileError, "compile error: "+strings.Join(msgs, "; "))
	}
	return &std, nil
}

// Options mirrors the solc-invocation CLI flags (spec.md §6): binary
// path, base path, repeatable include paths, and a remappings file.
type Options struct {
	SolcBin        string
	BasePath       string
	IncludePaths   []string
	RemappingsFile string
	ContractName   string
}

// pragmaRe / maxUintRe mirror compile_standard_json's two source
// rewrites: solc --standard-json ignores a file's own pragma but the
// CLI strips it anyway for parity with the source tool's behavior, and
// `uintN(-1)` is rewritten to `type(uintN).max` for pre-0.8 sources
// that still use the old max-value idiom.
var (
	pragmaRe  = regexp.MustCompile(`pragma\s+solidity\s+([<=>^]{0,2}(\s*\d+\s*\.){2}\s*\d+\s*)+;`)
	maxUintRe = regexp.MustCompile(`uint(\d*)(\s*)\((\s*)-(\s*)1(\s*)\)`)
)

// rewriteSource applies compile_standard_json's two textual rewrites.
func rewriteSource(content string) string {
	content = pragmaRe.ReplaceAllString(content, "")
	content = maxUintRe.ReplaceAllString(content, "type(uint$1).max $2$3$4$5")
	return content
}

// GenerateStandardInput builds a standard-input JSON for a single
// `.sol` entry file: reads the file (and, via BasePath/IncludePaths,
// anything it imports isn't resolved here -- solc itself walks
// imports given the same base/include paths), applies the source
// rewrites, and sets outputSelection to request only `ir` for
// ContractName (or every contract, "*", when unset).
func GenerateStandardInput(filePath string, opts Options) (*StandardInputJSON, error) {
	basePath := opts.BasePath
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, hookerr.Wrap(hookerr.CompileError, "resolving base path", err)
		}
		basePath = wd
	}
	remappings, err := loadRemappings(basePath, opts.RemappingsFile)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, hookerr.Wrap(hookerr.CompileError, "reading "+filePath, err)
	}
	rel, err := filepath.Rel(basePath, filePath)
	if err != nil {
		rel = filePath
	}

	contractSel := opts.ContractName
	if contractSel == "" {
		contractSel = "*"
	}
	return &StandardInputJSON{
		Language: "Solidity",
		Sources: map[string]SourceContent{
			rel: {Content: rewriteSource(string(raw))},
		},
		Settings: StandardInputJSONSettings{
			Remappings: remappings,
			OutputSelection: map[string]map[string][]string{
				"*": {contractSel: {"ir"}},
			},
		},
	}, nil
}

// loadRemappings reads remappingsFile (or, when unset, "remappings.txt"
// under basePath if it exists), one remapping per non-blank line,
// returned sorted for reproducible solc invocations.
func loadRemappings(basePath, remappingsFile string) ([]string, error) {
	path := remappingsFile
	if path == "" {
		candidate := filepath.Join(basePath, "remappings.txt")
		if _, err := os.Stat(candidate); err != nil {
			return nil, nil
		}
		path = candidate
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, hookerr.Wrap(hookerr.CompileError, "reading remappings file", err)
	}
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	sort.Strings(out)
	return out, nil
}

// CompileStandardJSON shells out to solcBin with `--standard-json`,
// feeding it as stdin and decoding its stdout, mirroring
// compile_standard_json's subprocess invocation.
func CompileStandardJSON(input *StandardInputJSON, solcBin string) (*StandardOutputJSON, error) {
	if solcBin == "" {
		solcBin = "solc"
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, hookerr.Wrap(hookerr.CompileError, "encoding standard-input JSON", err)
	}

	cmd := exec.Command(solcBin, "--standard-json")
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, hookerr.Wrap(hookerr.CompileError,
			fmt.Sprintf("solc invocation failed: stdout=%s stderr=%s", stdout.String(), stderr.String()), err)
	}
	return ParseStandardOutput(stdout.Bytes())
}
