package detector

import (
	"reflect"
	"time"

	"github.com/blocksecteam/hookscan/handler"
	"github.com/blocksecteam/hookscan/ir"
	"github.com/blocksecteam/hookscan/traversal"
)

// ScanResult is the top-level output shape package report renders to
// JSON (spec.md §6). ExternalResults holds only the detectors the caller
// originally requested, in request order; the internal results a
// dependent detector's TraverseStart looks its dependency up in are kept
// by Run, keyed by detector type, and are not part of ScanResult.
type ScanResult struct {
	ExternalResults map[string][]*Result // detector Name() -> findings
	Order           []string             // request order of ExternalResults' keys

	ContractName    string
	IsTimeout       bool
	TimeUsed        time.Duration
	TraversalRounds int
}

// Scheduler runs the round-by-round detector schedule over one
// Contract, grounded on
// original_source/hookscan/hookscan.py's Hookscan class.
type Scheduler struct {
	OnlyRunNotProtected bool
	RoundLimit          time.Duration
	CreationPartLimit   time.Duration

	// OnSkip is called for every Outcome.SkipPath a callback returns
	// (spec.md §7 item 5: logged, not fatal). nil silently drops them.
	OnSkip func(detectorName string, key traversal.CallbackKey, reason string)

	original  []Detector
	instances []Detector
	types     []reflect.Type
}

// Contract is the minimal surface Scheduler needs from *ir.Contract,
// named separately so detector doesn't re-export the whole ir package
// API by accident.
type Contract = ir.Contract

// Register seeds the scheduler with the caller-requested detectors,
// then transitively auto-registers every dependency type those
// detectors declare (hookscan.py's register_detectors /
// _register_dependency_detectors_recursive), and finally checks that no
// registered detector declares the same callback key twice
// (check_all_detectors_callback_is_valid, collapsed to equality since
// CallbackKey has no subclass relationships to worry about). Different
// detectors may share a key; the dispatch table holds every callback
// registered under it.
func (s *Scheduler) Register(detectors ...Detector) {
	if len(s.instances) != 0 {
		panic("detector.Scheduler.Register: already registered")
	}
	seen := make(map[reflect.Type]bool)
	for _, d := range detectors {
		t := reflect.TypeOf(d)
		if seen[t] {
			panic("detector.Scheduler.Register: duplicate detector " + Name(d))
		}
		seen[t] = true
		s.original = append(s.original, d)
		s.instances = append(s.instances, d)
		s.types = append(s.types, t)
	}

	s.registerDependenciesRecursive(newDetectorFactories())
	s.checkCallbackKeysValid()
}

// detectorFactory constructs a zero-value instance of a dependency
// detector type named by reflect.Type, used only when a declared
// dependency wasn't part of the caller's original request.
type detectorFactory func(reflect.Type) Detector

func newDetectorFactories() detectorFactory {
	return func(t reflect.Type) Detector {
		elem := t
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		v := reflect.New(elem)
		return v.Interface().(Detector)
	}
}

func (s *Scheduler) registerDependenciesRecursive(factory detectorFactory) {
	added := false
	hasType := func(t reflect.Type) bool {
		for _, existing := range s.types {
			if existing == t {
				return true
			}
		}
		return false
	}
	for _, d := range append([]Detector(nil), s.instances...) {
		for _, deps := range d.RoundDependency() {
			for _, depType := range deps {
				if !hasType(depType) {
					dep := factory(depType)
					s.instances = append(s.instances, dep)
					s.types = append(s.types, depType)
					added = true
				}
			}
		}
	}
	if added {
		s.registerDependenciesRecursive(factory)
	}
}

func (s *Scheduler) checkCallbackKeysValid() {
	for _, d := range s.instances {
		seen := make(map[traversal.CallbackKey]bool)
		for _, key := range d.CallbackKeys() {
			if seen[key] {
				panic("detector.Scheduler: " + Name(d) + " declares callback key " + key.Kind.String() + " twice")
			}
			seen[key] = true
		}
	}
}

// Run executes the full round schedule and returns the finished scan
// result (hookscan.py's detect loop).
func (s *Scheduler) Run(contract *Contract) *ScanResult {
	result := &ScanResult{
		ExternalResults: make(map[string][]*Result),
		ContractName:    contract.Name,
	}
	for _, d := range s.original {
		result.Order = append(result.Order, Name(d))
	}

	internalResults := make(map[reflect.Type][]*Result)
	done := make(map[Detector]bool)
	relativeRound := make(map[Detector]int)
	for _, d := range s.instances {
		relativeRound[d] = -1
	}

	constants := traversal.NewConstantCache()
	var totalUsed time.Duration
	for {
		if len(done) == len(s.instances) {
			return result
		}

		thisRound := s.dynamicRegister(done, relativeRound)
		engine := s.buildEngine(thisRound)
		timeout := handler.NewTimeoutHandler(s.RoundLimit, s.CreationPartLimit)
		timeout.StartRound(contract)

		roundStart := time.Now()
		for _, fn := range []*ir.Function{contract.Creation, contract.Runtime} {
			if fn == nil {
				continue
			}
			protect := handler.NewProtectHandler()
			info := traversal.NewTraversalInfoWithCache(contract, fn, timeout, protect, constants)
			info.OnlyRunNotProtected = s.OnlyRunNotProtected
			for _, d := range thisRound {
				if ted, ok := d.(TraverseEventDetector); ok && d.RegisterTraverseEvent() {
					ted.TraverseStart(info, internalResults, relativeRound[d])
				}
			}
			engine.Traverse(info, fn)
			for _, d := range thisRound {
				if ted, ok := d.(TraverseEventDetector); ok && d.RegisterTraverseEvent() {
					ted.TraverseStop(info, relativeRound[d])
				}
			}
		}
		totalUsed += time.Since(roundStart)
		result.TimeUsed = totalUsed
		result.TraversalRounds++
		if timeout.HasTimedOutAll() {
			result.IsTimeout = true
		}

		for i, d := range s.instances {
			maxRound := maxKey(d.RoundDependency())
			if relativeRound[d] == maxRound && !done[d] {
				done[d] = true
				internalResults[s.types[i]] = d.InternalResult()
				if s.isOriginal(d) {
					result.ExternalResults[Name(d)] = d.ExternalResult()
				}
			}
		}
	}
}

func (s *Scheduler) isOriginal(d Detector) bool {
	for _, o := range s.original {
		if o == d {
			return true
		}
	}
	return false
}

func maxKey(m map[int][]reflect.Type) int {
	max := 0
	for k := range m {
		if k > max {
			max = k
		}
	}
	return max
}

// dynamicRegister picks every detector whose next relative round's
// dependency set is already fully done, bumps its round counter, and
// returns the set running this round (hookscan.py's
// dynamic_register_detectors).
func (s *Scheduler) dynamicRegister(done map[Detector]bool, relativeRound map[Detector]int) []Detector {
	doneTypes := make(map[reflect.Type]bool)
	for i, d := range s.instances {
		if done[d] {
			doneTypes[s.types[i]] = true
		}
	}

	var thisRound []Detector
	for _, d := range s.instances {
		if done[d] {
			continue
		}
		deps, ok := d.RoundDependency()[relativeRound[d]+1]
		if !ok {
			continue
		}
		satisfied := true
		for _, dep := range deps {
			if !doneTypes[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			thisRound = append(thisRound, d)
		}
	}
	for _, d := range thisRound {
		relativeRound[d]++
	}
	return thisRound
}

// buildEngine builds a fresh traversal.Engine whose dispatch table only
// contains callbacks for detectors running this round, wrapping each
// Detector.Callback's Outcome into the error traversal.Callback expects.
func (s *Scheduler) buildEngine(thisRound []Detector) *traversal.Engine {
	engine := traversal.NewEngine()
	// The engine calls OnErr right after the callback that failed, so
	// lastErrFrom names that callback's detector even when several
	// detectors share a key.
	var lastErrFrom string
	for _, d := range thisRound {
		det := d
		name := Name(det)
		for _, key := range det.CallbackKeys() {
			engine.Dispatch[key] = append(engine.Dispatch[key], func(info *traversal.TraversalInfo, inst *traversal.ValueInstance, isEnd bool) error {
				err := det.Callback(info, inst, isEnd).asErr()
				if err != nil {
					lastErrFrom = name
				}
				return err
			})
		}
	}
	engine.OnErr = func(key traversal.CallbackKey, err error) {
		if s.OnSkip == nil {
			return
		}
		if se, ok := err.(*skipError); ok {
			s.OnSkip(lastErrFrom, key, se.reason)
		}
	}
	return engine
}
