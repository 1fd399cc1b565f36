// Package report renders a finished detector.ScanResult into the
// stable JSON shape spec.md §6 documents, grounded on
// original_source/hookscan/detectors/detector_result.py's to_json_dict
// and original_source/uniscan/__main__.py's execute_and_output (the
// flattening of detection_results from a per-detector map into one
// ordered list, each entry stamped with its detector_name/vulnerability).
package report

import (
	"encoding/json"

	"github.com/blocksecteam/hookscan/detector"
)

// Finding is one flattened entry of the "detection_results" array.
type Finding struct {
	DetectorName    string      `json:"detector_name"`
	Vulnerability   string      `json:"vulnerability"`
	ExternalFunc    string      `json:"external_function,omitempty"`
	FunctionSel     string      `json:"function_selector,omitempty"`
	CallStack       []string    `json:"yul_call_stack,omitempty"`
	SourceLocation  string      `json:"source_location,omitempty"`
	Severity        string      `json:"severity"`
	Confidence      string      `json:"confidence"`
	AdditionalInfo  interface{} `json:"additional_info,omitempty"`
}

// Info is the "info" object: scan-level metadata (spec.md §6).
type Info struct {
	ContractName    string  `json:"contract_name"`
	IsTimeout       bool    `json:"is_timeout"`
	TimeUsed        float64 `json:"time_used"`
	TraversalRounds int     `json:"traversal_rounds"`
}

// Output is the top-level detect-mode document.
type Output struct {
	DetectionResults []Finding `json:"detection_results"`
	Info             Info      `json:"info"`
}

// ErrorOutput is what --silent substitutes for Output when a fatal
// error was recovered at the CLI boundary (spec.md §7 / §6 exit codes).
type ErrorOutput struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// Render flattens result's per-detector finding map into report.Output,
// walking result.Order so detectors appear in the caller's original
// request order and, within a detector, in the order ExternalResult
// returned them. descriptions supplies each detector's
// VulnerabilityDescription, keyed by detector.Name.
func Render(result *detector.ScanResult, descriptions map[string]string) *Output {
	out := &Output{
		Info: Info{
			ContractName:    result.ContractName,
			IsTimeout:       result.IsTimeout,
			TimeUsed:        result.TimeUsed.Seconds(),
			TraversalRounds: result.TraversalRounds,
		},
	}
	for _, name := range result.Order {
		for _, r := range result.ExternalResults[name] {
			f := Finding{
				DetectorName:   name,
				Vulnerability:  descriptions[name],
				ExternalFunc:   r.ExternalFunction,
				Severity:       string(r.Severity),
				Confidence:     string(r.Confidence),
				AdditionalInfo: r.AdditionalInfo,
				CallStack:      r.CallStack,
			}
			if sel, ok := r.FunctionSelector(); ok {
				f.FunctionSel = sel
			}
			if loc, ok := r.SourceLocation(); ok {
				f.SourceLocation = loc
			}
			out.DetectionResults = append(out.DetectionResults, f)
		}
	}
	return out
}

// DescriptionsFor builds the name->description map Render needs from
// the detector instances the scheduler was registered with (the
// original, caller-requested set -- dependency-only detectors like
// UniswapGetCallback never appear in result.Order so they never need
// an entry here).
func DescriptionsFor(detectors []detector.Detector) map[string]string {
	out := make(map[string]string, len(detectors))
	for _, d := range detectors {
		if vd, ok := d.(detector.VulnerabilityDescriber); ok {
			out[detector.Name(d)] = vd.VulnerabilityDescription()
		}
	}
	return out
}

// Marshal renders v as indented JSON, matching
// `json.dump(result, of, indent=4, ...)`/`json.dumps(result, indent=4, ...)`.
func Marshal(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "    ")
}
