// Package engine owns the set of live graphs a process hosts. It replaces
// a process-wide mutable registry with an explicit, non-global type: one
// Engine per process, holding map[string]*graph.Graph behind its own
// mutex, with Graph(name) creating a graph on first reference.
//
// Engine is also where the fork-barrier hooks fan out: a host that needs
// a consistent point-in-time snapshot across every graph it owns calls
// PreFork/PostForkParent/PostForkChild here rather than reaching into each
// graph's coordinator individually.
package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/orneryd/mgraph/pkg/config"
	"github.com/orneryd/mgraph/pkg/gblog"
	"github.com/orneryd/mgraph/pkg/graph"
)

// Engine owns every graph a process hosts.
type Engine struct {
	mu     sync.Mutex
	graphs map[string]*graph.Graph
	cfg    *config.Config
	log    *gblog.Logger
}

// New returns an Engine configured by cfg. A nil cfg is replaced with
// config.LoadFromEnv()'s defaults.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	level := gblog.LevelInfo
	switch cfg.Logging.Level {
	case "DEBUG":
		level = gblog.LevelDebug
	case "WARN":
		level = gblog.LevelWarn
	case "ERROR":
		level = gblog.LevelError
	}
	log := gblog.Default()
	log.SetLevel(level)

	return &Engine{
		graphs: make(map[string]*graph.Graph),
		cfg:    cfg,
		log:    log,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Adopt registers an already-built graph (e.g. one restored by
// pkg/persist.Decode) under the engine's ownership, keyed by its own
// name. A subsequent Graph(name) call returns this instance instead of
// creating a fresh one.
func (e *Engine) Adopt(g *graph.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphs[g.Name()] = g
	e.log.Infof("adopted graph %q", g.Name())
}

// Graph returns the named graph, creating it on first reference.
func (e *Engine) Graph(name string) (*graph.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.graphs[name]; ok {
		return g, nil
	}
	g, err := graph.New(name)
	if err != nil {
		return nil, err
	}
	e.graphs[name] = g
	e.log.Infof("created graph %q", name)
	return g, nil
}

// DropGraph removes a graph from the engine. It does not wait for
// in-flight readers or writers on that graph to finish; callers that need
// a quiescent graph before dropping it should call PreFork-style
// coordination themselves first.
func (e *Engine) DropGraph(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.graphs[name]; !ok {
		return fmt.Errorf("engine: no such graph %q", name)
	}
	delete(e.graphs, name)
	return nil
}

// GraphNames returns the names of every graph the engine owns, sorted.
func (e *Engine) GraphNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.graphs))
	for name := range e.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PreFork brings every owned graph to a quiescent, writer-free state
// ahead of a host snapshot mechanism (e.g. a copy-on-write process fork,
// or the CLI's dump command standing in for one) by taking a read lease on
// each. Readers are left running; in-flight writers finish and new writers
// block until PostForkParent.
func (e *Engine) PreFork() {
	for _, g := range e.snapshotGraphs() {
		g.Coordinator().PreFork()
	}
}

// PostForkParent resumes normal writer admission on every owned graph
// after a PreFork barrier completes in the parent process.
func (e *Engine) PostForkParent() {
	for _, g := range e.snapshotGraphs() {
		g.Coordinator().PostForkParent()
	}
}

// PostForkChild re-initializes every owned graph's coordinator state,
// since a forked child inherits no in-flight waiters or holders from the
// parent's memory image.
func (e *Engine) PostForkChild() {
	for _, g := range e.snapshotGraphs() {
		g.Coordinator().PostForkChild()
	}
}

func (e *Engine) snapshotGraphs() []*graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*graph.Graph, 0, len(e.graphs))
	for _, g := range e.graphs {
		out = append(out, g)
	}
	return out
}
