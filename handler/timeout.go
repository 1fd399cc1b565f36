// Package handler holds the two per-round DFS collaborators spec.md
// §4.7 names: TimeoutHandler (wall-clock budgets) and ProtectHandler (a
// caller-protection marker stack). Both are deliberately independent of
// package traversal -- they read only package ir -- so traversal can
// import handler without creating a cycle, and so each handler is
// unit-testable on its own.
package handler

import (
	"time"

	"github.com/blocksecteam/hookscan/ir"
)

// Default budgets, spec.md §4.7.
const (
	DefaultTimeoutLimitPerRound             = 60 * time.Second
	DefaultTimeoutLimitCreationPartPerRound = 3 * time.Second
)

// TimeoutHandler enforces the round-level, creation-part, and
// per-entry-point budgets grounded on
// original_source/hookscan/components/timeout_handler.py. The engine
// calls StartRound once per round, EnterEntry/LeaveEntry around every
// DFS descent into a runtime EXTERNAL/FALLBACK entry point, and polls
// IsTimeout at each block entry.
type TimeoutHandler struct {
	RoundLimit        time.Duration
	CreationPartLimit time.Duration

	roundStart    time.Time
	perEntryLimit map[*ir.Function]time.Duration
	entryStart    map[*ir.Function]time.Time
	done          map[*ir.Function]bool
	hasTimeoutAll bool
}

// NewTimeoutHandler builds a handler with the given budgets, falling
// back to the spec.md §4.7 defaults for any non-positive value.
func NewTimeoutHandler(roundLimit, creationPartLimit time.Duration) *TimeoutHandler {
	if roundLimit <= 0 {
		roundLimit = DefaultTimeoutLimitPerRound
	}
	if creationPartLimit <= 0 {
		creationPartLimit = DefaultTimeoutLimitCreationPartPerRound
	}
	return &TimeoutHandler{
		RoundLimit:        roundLimit,
		CreationPartLimit: creationPartLimit,
		perEntryLimit:     make(map[*ir.Function]time.Duration),
		entryStart:        make(map[*ir.Function]time.Time),
		done:              make(map[*ir.Function]bool),
	}
}

// StartRound records the round's start time and splits the remaining
// (round-minus-creation-part) budget equally across every runtime-half
// EXTERNAL/FALLBACK function (timeout_handler.py's init_timeout_limit).
func (h *TimeoutHandler) StartRound(contract *ir.Contract) {
	h.roundStart = time.Now()
	h.hasTimeoutAll = false
	h.done = make(map[*ir.Function]bool)
	h.entryStart = make(map[*ir.Function]time.Time)
	h.perEntryLimit = make(map[*ir.Function]time.Duration)

	entries := externalFallbackEntries(contract)
	if len(entries) == 0 {
		return
	}
	remaining := h.RoundLimit - h.CreationPartLimit
	if remaining < 0 {
		remaining = 0
	}
	per := remaining / time.Duration(len(entries))
	for _, fn := range entries {
		h.perEntryLimit[fn] = per
	}
}

func externalFallbackEntries(contract *ir.Contract) []*ir.Function {
	var out []*ir.Function
	for _, fn := range contract.RuntimeFuncs {
		if fn.Type == ir.FuncExternal || fn.Type == ir.FuncFallback {
			out = append(out, fn)
		}
	}
	if contract.Runtime != nil && (contract.Runtime.Type == ir.FuncExternal || contract.Runtime.Type == ir.FuncFallback) {
		out = append(out, contract.Runtime)
	}
	return out
}

// EnterEntry records the wall-clock start of fn's first call from the
// runtime dispatcher (timeout_handler.py's _before_call hook, restricted
// here to entries the engine itself recognizes as EXTERNAL/FALLBACK).
func (h *TimeoutHandler) EnterEntry(fn *ir.Function) {
	if _, ok := h.entryStart[fn]; !ok {
		h.entryStart[fn] = time.Now()
	}
}

// LeaveEntry marks fn done and redistributes any unused share of its
// budget equally across entries not yet done
// (dynamic_update_timeout_limit_dict).
func (h *TimeoutHandler) LeaveEntry(fn *ir.Function) {
	if h.done[fn] {
		return
	}
	h.done[fn] = true

	start, ok := h.entryStart[fn]
	if !ok {
		return
	}
	budget, ok := h.perEntryLimit[fn]
	if !ok {
		return
	}
	used := time.Since(start)
	if used >= budget {
		return
	}

	var pending []*ir.Function
	for f := range h.perEntryLimit {
		if !h.done[f] {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		return
	}
	share := (budget - used) / time.Duration(len(pending))
	for _, f := range pending {
		h.perEntryLimit[f] += share
	}
}

// IsTimeout reports whether the current DFS descent should stop:
// isRuntime selects which budget applies, and runtimeEntry (nil while
// not yet inside a specific EXTERNAL/FALLBACK call) selects the
// redistributed per-entry budget on top of the whole-round one.
func (h *TimeoutHandler) IsTimeout(isRuntime bool, runtimeEntry *ir.Function) bool {
	if h.hasTimeoutAll {
		return true
	}
	if !isRuntime {
		return time.Since(h.roundStart) >= h.CreationPartLimit
	}
	if time.Since(h.roundStart) >= h.RoundLimit {
		h.hasTimeoutAll = true
		return true
	}
	if runtimeEntry == nil {
		return false
	}
	start, ok := h.entryStart[runtimeEntry]
	if !ok {
		return false
	}
	limit, ok := h.perEntryLimit[runtimeEntry]
	if !ok {
		return false
	}
	return time.Since(start) >= limit
}

// HasTimedOutAll reports whether the whole round's budget was exhausted
// at any point, surfaced in the final report as `is_timeout` (spec.md
// §6).
func (h *TimeoutHandler) HasTimedOutAll() bool { return h.hasTimeoutAll }
