// Command mgraph is a thin CLI exercising the engine end to end: create
// graphs, add nodes and edges, enumerate paths, run BFS, and persist to a
// badger-backed demo keyspace. It is a demonstration and test harness, not
// a dependency of pkg/graph: the CORE never imports this package.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/mgraph/pkg/algo"
	"github.com/orneryd/mgraph/pkg/config"
	"github.com/orneryd/mgraph/pkg/engine"
	"github.com/orneryd/mgraph/pkg/graph"
	"github.com/orneryd/mgraph/pkg/paths"
	"github.com/orneryd/mgraph/pkg/persist"
	"github.com/orneryd/mgraph/pkg/persist/badgerstore"
)

var (
	flagDataDir  string
	flagCoLocate bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mgraph",
		Short: "mgraph - matrix-backed property graph engine CLI",
		Long: `mgraph exercises the matrix-backed property graph engine: create
graphs, add nodes and edges, enumerate paths, run BFS, and persist graphs
to a badger-backed demo keyspace between invocations.`,
	}
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./data", "badger data directory")
	rootCmd.PersistentFlags().BoolVar(&flagCoLocate, "co-locate", false, "use cluster-hashtag shard key prefix")

	rootCmd.AddCommand(
		newCreateGraphCmd(),
		newAddNodeCmd(),
		newAddEdgeCmd(),
		newAllPathsCmd(),
		newBFSCmd(),
		newDumpCmd(),
		newLoadCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCreateGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-graph <name>",
		Short: "Create a graph and persist its (empty) state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, name)
			if err != nil {
				return err
			}
			if existed {
				fmt.Printf("graph %q already exists (%d nodes, %d edges)\n", name, g.Stats().NodeCount, g.Stats().EdgeCount)
				return nil
			}
			if err := saveGraph(store, g); err != nil {
				return err
			}
			fmt.Printf("created graph %q\n", name)
			return nil
		},
	}
}

func newAddNodeCmd() *cobra.Command {
	var labelsCSV, propsJSON string
	cmd := &cobra.Command{
		Use:   "add-node <graph>",
		Short: "Add a node to a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, _, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}

			props, err := parseProps(propsJSON)
			if err != nil {
				return err
			}
			id, err := g.CreateNode(splitCSV(labelsCSV), props)
			if err != nil {
				return err
			}
			if err := saveGraph(store, g); err != nil {
				return err
			}
			fmt.Printf("created node %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&labelsCSV, "labels", "", "comma-separated labels")
	cmd.Flags().StringVar(&propsJSON, "props", "", "JSON object of properties")
	return cmd
}

func newAddEdgeCmd() *cobra.Command {
	var propsJSON string
	cmd := &cobra.Command{
		Use:   "add-edge <graph> <from> <to> <relType>",
		Short: "Add an edge to a graph",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("graph %q does not exist", args[0])
			}
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid from id: %w", err)
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid to id: %w", err)
			}
			props, err := parseProps(propsJSON)
			if err != nil {
				return err
			}
			id, err := g.CreateEdge(from, to, args[3], props)
			if err != nil {
				return err
			}
			if err := saveGraph(store, g); err != nil {
				return err
			}
			fmt.Printf("created edge %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&propsJSON, "props", "", "JSON object of properties")
	return cmd
}

func newAllPathsCmd() *cobra.Command {
	var destStr, relTypesCSV, directionStr string
	var minLen, maxLen, limit int
	cmd := &cobra.Command{
		Use:   "all-paths <graph> <source>",
		Short: "Enumerate edge-simple paths from a source node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("graph %q does not exist", args[0])
			}
			source, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid source id: %w", err)
			}

			dir, err := parseDirection(directionStr)
			if err != nil {
				return err
			}
			opts := paths.Options{MinLen: minLen, MaxLen: maxLen, RelTypes: splitCSV(relTypesCSV), Direction: dir}
			if destStr != "" {
				dest, err := strconv.Atoi(destStr)
				if err != nil {
					return fmt.Errorf("invalid dest id: %w", err)
				}
				opts.Dest = &dest
			}

			g.RLock()
			defer g.RUnlock()
			it := paths.Init(g, source, opts)
			found, err := paths.Collect(it, limit)
			if err != nil {
				return err
			}
			for _, p := range found {
				fmt.Println(formatPath(source, p))
			}
			fmt.Printf("%d path(s)\n", len(found))
			return nil
		},
	}
	cmd.Flags().StringVar(&destStr, "dest", "", "restrict to paths ending at this node id")
	cmd.Flags().StringVar(&relTypesCSV, "rel-types", "", "comma-separated relation types to traverse")
	cmd.Flags().StringVar(&directionStr, "direction", "out", "traversal direction: out, in, or both")
	cmd.Flags().IntVar(&minLen, "min-len", 0, "minimum path length in edges")
	cmd.Flags().IntVar(&maxLen, "max-len", 0, "maximum path length in edges (0 = unbounded)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of paths to print (0 = unbounded)")
	return cmd
}

func newBFSCmd() *cobra.Command {
	var relTypesCSV string
	cmd := &cobra.Command{
		Use:   "bfs <graph> <source>",
		Short: "Compute BFS distances from a source node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("graph %q does not exist", args[0])
			}
			source, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid source id: %w", err)
			}

			dist, err := algo.BFSTree(g, source, algo.Selection{RelTypes: splitCSV(relTypesCSV)})
			if err != nil {
				return err
			}
			for node, d := range dist {
				fmt.Printf("%d: %d\n", node, d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&relTypesCSV, "rel-types", "", "comma-separated relation types to traverse")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <graph>",
		Short: "Re-encode and persist a graph's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("graph %q does not exist", args[0])
			}

			// Stand in for an external snapshot mechanism (e.g. a
			// copy-on-write fork): quiesce writers across everything the
			// engine owns, take the snapshot, then resume.
			eng.PreFork()
			shards, err := persist.Encode(g)
			eng.PostForkParent()
			if err != nil {
				return err
			}

			if err := store.DeleteGraph(g.Name(), flagCoLocate); err != nil {
				return err
			}
			if err := store.SaveGraph(shards, flagCoLocate); err != nil {
				return err
			}
			fmt.Printf("persisted %q as %d shard(s)\n", args[0], len(shards))
			return nil
		},
	}
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <graph>",
		Short: "Load a graph from the demo store and print its stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := newEngine()
			g, existed, err := loadOrCreateGraph(eng, store, args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("graph %q does not exist", args[0])
			}
			stats := g.Stats()
			fmt.Printf("graph %q: %d nodes (%d deleted), %d edges (%d deleted), %d labels, %d relation types\n",
				args[0], stats.NodeCount, stats.DeletedNodeCount, stats.EdgeCount, stats.DeletedEdgeCount,
				stats.LabelCount, stats.RelationCount)
			return nil
		},
	}
}

func openStore() (*badgerstore.Store, error) {
	if err := os.MkdirAll(flagDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return badgerstore.Open(flagDataDir)
}

// newEngine builds the Engine each command runs its graph operations
// under. A fresh Engine per invocation mirrors a fresh process per CLI
// call; loadOrCreateGraph adopts whatever graph a command loads so the
// fork-barrier hooks (see newDumpCmd) have something real to fan out to.
func newEngine() *engine.Engine {
	cfg := config.LoadFromEnv()
	cfg.Storage.DataDir = flagDataDir
	cfg.Storage.CoLocate = flagCoLocate
	return engine.New(cfg)
}

// loadOrCreateGraph loads graphName from store if it has been persisted
// before, or creates a fresh in-memory graph otherwise, and adopts the
// result into eng. The returned bool reports whether a prior persisted
// state was found.
func loadOrCreateGraph(eng *engine.Engine, store *badgerstore.Store, name string) (*graph.Graph, bool, error) {
	shards, err := store.LoadGraph(name, flagCoLocate)
	if err != nil {
		return nil, false, err
	}
	if len(shards) == 0 {
		g, err := eng.Graph(name)
		return g, false, err
	}
	g, err := persist.Decode(name, shards)
	if err != nil {
		return nil, false, err
	}
	eng.Adopt(g)
	return g, true, nil
}

// saveGraph replaces whatever was previously persisted for g with its
// current state, so repeated CLI invocations never accumulate stale
// shards alongside fresh ones.
func saveGraph(store *badgerstore.Store, g *graph.Graph) error {
	shards, err := persist.Encode(g)
	if err != nil {
		return err
	}
	if err := store.DeleteGraph(g.Name(), flagCoLocate); err != nil {
		return err
	}
	return store.SaveGraph(shards, flagCoLocate)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDirection(s string) (graph.Direction, error) {
	switch strings.ToLower(s) {
	case "", "out", "outgoing":
		return graph.Outgoing, nil
	case "in", "incoming":
		return graph.Incoming, nil
	case "both":
		return graph.Both, nil
	default:
		return 0, fmt.Errorf("invalid --direction %q: want out, in, or both", s)
	}
}

func parseProps(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, fmt.Errorf("parsing --props: %w", err)
	}
	return props, nil
}

func formatPath(source int, p paths.Path) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", source)
	for _, step := range p.Steps {
		fmt.Fprintf(&b, " -[%s]-> %d", step.Edge.RelType, step.Node)
	}
	return b.String()
}
