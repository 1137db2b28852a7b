package abiregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"poke/internal/pkg/logger"
)

const maxArtifactSize = 5 * 1024 * 1024

// artifactDirs are the path segments that mark common build-tool output
// layouts (Foundry's out/, Hardhat's artifacts/).
var artifactDirs = map[string]bool{"out": true, "artifacts": true}

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build-cache":  true,
}

// Scanner walks directory trees for contract-artifact JSON and feeds a
// registry generation. Generations are numbered atomically so a reload can
// overlap a still-running startup scan.
type Scanner struct {
	roots      []string
	generation atomic.Int64
}

// NewScanner builds a scanner over the given roots. An empty list scans the
// current working directory.
func NewScanner(roots ...string) *Scanner {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return &Scanner{roots: roots}
}

// Run executes one scan generation synchronously and returns the finished
// registry. It observes ctx between file reads so shutdown is never blocked
// on a directory walk.
func (s *Scanner) Run(ctx context.Context) *Registry {
	registry := newRegistry(int(s.generation.Add(1)))
	started := time.Now()

	for _, root := range s.roots {
		s.scanRoot(ctx, root, registry)
		if ctx.Err() != nil {
			break
		}
	}

	registry.ScanDuration = time.Since(started)
	logger.Info(ctx, "abi scan finished",
		"generation", registry.Generation,
		"files", registry.ScannedFiles,
		"selectors", registry.Len(),
		"events", registry.EventCount(),
		"collisions", len(registry.Collisions),
		"elapsed", registry.ScanDuration,
	)

	return registry
}

// Start launches the scan on its own goroutine and delivers the finished
// registry through the returned single-slot channel before exiting.
func (s *Scanner) Start(ctx context.Context) <-chan *Registry {
	out := make(chan *Registry, 1)
	go func() {
		defer close(out)
		out <- s.Run(ctx)
	}()
	return out
}

func (s *Scanner) scanRoot(ctx context.Context, root string, registry *Registry) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		name := d.Name()
		if d.IsDir() {
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != root) {
				return fs.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(name, ".json") || !underArtifactDir(path) {
			return nil
		}

		if info, err := d.Info(); err != nil || info.Size() > maxArtifactSize {
			return nil
		}

		registry.ScannedFiles++
		if err := loadArtifact(path, registry); err != nil {
			logger.Debug(ctx, "artifact skipped", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "abi scan aborted", "root", root, "error", err)
	}
}

// underArtifactDir reports whether any directory segment of path is a known
// build-output directory.
func underArtifactDir(path string) bool {
	dir := filepath.Dir(path)
	for _, segment := range strings.Split(filepath.ToSlash(dir), "/") {
		if artifactDirs[segment] {
			return true
		}
	}
	return false
}

// loadArtifact parses one artifact file. The ABI may be the whole document
// or nested under an "abi" key.
func loadArtifact(path string, registry *Registry) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	abiJSON := content
	if !bytes.HasPrefix(bytes.TrimSpace(content), []byte("[")) {
		var wrapper struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(content, &wrapper); err != nil {
			return err
		}
		if wrapper.ABI == nil {
			return nil // not an artifact; silently skip
		}
		abiJSON = wrapper.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return err
	}

	for _, method := range parsed.Methods {
		registry.addFunction(FunctionEntry{
			Name:      method.Name,
			Signature: method.Sig,
			Selector:  SelectorFromBytes(method.ID),
			Method:    method,
			Source:    path,
		})
	}

	for _, event := range parsed.Events {
		registry.addEvent(EventEntry{
			Name:      event.Name,
			Signature: event.Sig,
			Topic:     crypto.Keccak256Hash([]byte(event.Sig)),
			Event:     event,
			Source:    path,
		})
	}

	return nil
}
