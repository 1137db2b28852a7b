// Package abiregistry builds a lookup from 4-byte function selectors and
// event topics to ABI descriptors by scanning contract-artifact JSON on
// disk, and decodes calldata against it. A scan produces an immutable
// snapshot published through an atomic pointer: the UI and ingestion
// goroutines read whatever generation is current, a reload swaps in a fresh
// one.
package abiregistry

import (
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// FunctionEntry describes one registered function.
type FunctionEntry struct {
	Name      string
	Signature string // canonical, e.g. "transfer(address,uint256)"
	Selector  Selector
	Method    abi.Method
	Source    string // artifact path the entry came from
}

// EventEntry describes one registered event.
type EventEntry struct {
	Name      string
	Signature string
	Topic     common.Hash // keccak256 of the canonical signature
	Event     abi.Event
	Source    string
}

// Registry is one immutable scan generation. Within a generation the maps
// are append-only during the scan and frozen once published.
type Registry struct {
	Generation int

	functions map[Selector][]FunctionEntry
	events    map[common.Hash][]EventEntry

	ScannedFiles int
	ScanDuration time.Duration
	Collisions   []string // informational: selectors registered with conflicting signatures
}

// newRegistry allocates an empty generation.
func newRegistry(generation int) *Registry {
	return &Registry{
		Generation: generation,
		functions:  make(map[Selector][]FunctionEntry),
		events:     make(map[common.Hash][]EventEntry),
	}
}

// addFunction registers a function entry. The first entry for a selector
// wins rendering; later conflicting signatures are retained in the multimap
// and noted.
func (r *Registry) addFunction(entry FunctionEntry) {
	existing := r.functions[entry.Selector]
	for _, e := range existing {
		if e.Signature == entry.Signature {
			return // same function from another artifact
		}
	}
	if len(existing) > 0 {
		r.Collisions = append(r.Collisions,
			entry.Selector.Hex()+": "+existing[0].Signature+" vs "+entry.Signature)
	}
	r.functions[entry.Selector] = append(existing, entry)
}

// addEvent registers an event entry, deduplicating by signature.
func (r *Registry) addEvent(entry EventEntry) {
	existing := r.events[entry.Topic]
	for _, e := range existing {
		if e.Signature == entry.Signature {
			return
		}
	}
	r.events[entry.Topic] = append(existing, entry)
}

// Function returns the rendering entry for a selector: the first one seen.
func (r *Registry) Function(sel Selector) (FunctionEntry, bool) {
	entries := r.functions[sel]
	if len(entries) == 0 {
		return FunctionEntry{}, false
	}
	return entries[0], true
}

// FunctionsFor returns every entry registered under a selector; more than
// one marks an ambiguity the UI should note.
func (r *Registry) FunctionsFor(sel Selector) []FunctionEntry {
	return r.functions[sel]
}

// EventByTopic returns the rendering entry for a topic0.
func (r *Registry) EventByTopic(topic common.Hash) (EventEntry, bool) {
	entries := r.events[topic]
	if len(entries) == 0 {
		return EventEntry{}, false
	}
	return entries[0], true
}

// Len returns the number of distinct function selectors registered.
func (r *Registry) Len() int {
	return len(r.functions)
}

// EventCount returns the number of distinct event topics registered.
func (r *Registry) EventCount() int {
	return len(r.events)
}

// Store publishes registry snapshots. The zero value holds an empty
// generation so readers never see nil.
type Store struct {
	ptr atomic.Pointer[Registry]
}

// NewStore returns a store primed with an empty generation.
func NewStore() *Store {
	s := &Store{}
	s.ptr.Store(newRegistry(0))
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Registry {
	return s.ptr.Load()
}

// Swap publishes a fresh generation.
func (s *Store) Swap(r *Registry) {
	s.ptr.Store(r)
}
