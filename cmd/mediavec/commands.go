package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/viant/mediavec/config"
	"github.com/viant/mediavec/indexer"
	"github.com/viant/mediavec/session"
	"github.com/viant/mediavec/similarity"
	"github.com/viant/mediavec/vector"
)

var errNoEmbedder = errors.New("no embedding provider is configured for the command line")

// newRootCmd returns the command tree and a function that releases whatever
// the executed command opened. Cobra skips post-run hooks when a command
// fails, so the caller must invoke the closer after Execute returns.
func newRootCmd() (*cobra.Command, func() error) {
	var (
		configPath string
		a          *app
	)
	root := &cobra.Command{
		Use:           "mediavec",
		Short:         "Media metadata embedding store and similarity search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if a, err = newApp(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return a.ensureSchema(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	get := func() *app { return a }
	root.AddCommand(
		newInitCmd(),
		newGetCmd(get),
		newListCmd(get),
		newSearchCmd(get),
		newImportCmd(get),
		newSimilarCmd(get),
		newScoreCmd(get),
		newStatsCmd(get),
		newChangesCmd(get),
		newSessionCmd(get),
	)
	closeApp := func() error {
		if a == nil {
			return nil
		}
		err := a.Close()
		a = nil
		return err
	}
	return root, closeApp
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the document schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newGetCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := get().store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("document %q not found", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func newListCmd(get func() *app) *cobra.Command {
	var embedded bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := get().store
			var (
				docs []*vector.Document
				err  error
			)
			if embedded {
				docs, err = st.ListWithEmbedding(cmd.Context())
			} else {
				docs, err = st.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			printDocuments(cmd.OutOrStdout(), docs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&embedded, "embedded", false, "only documents that have an embedding")
	return cmd
}

func newSearchCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <substring>",
		Short: "Find documents whose name contains substring, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := get().store.SearchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDocuments(cmd.OutOrStdout(), docs)
			return nil
		},
	}
}

func newImportCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Upsert documents with precomputed embeddings from JSON lines (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			seen, saved, err := importDocuments(cmd.Context(), a, r)
			if err != nil {
				return err
			}
			a.metrics.AddDocuments(saved, seen-saved)
			fmt.Fprintf(cmd.OutOrStdout(), "seen=%d saved=%d skipped=%d\n", seen, saved, seen-saved)
			return nil
		},
	}
}

func importDocuments(ctx context.Context, a *app, r io.Reader) (int, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	batch := make([]*vector.Document, 0, a.cfg.Indexer.BatchSize)
	seen, saved, line := 0, 0, 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := a.store.UpsertMany(ctx, batch)
		if err != nil {
			return err
		}
		saved += n
		batch = batch[:0]
		return nil
	}
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		doc := &vector.Document{}
		if err := json.Unmarshal(scanner.Bytes(), doc); err != nil {
			return seen, saved, errors.Wrapf(err, "line %d", line)
		}
		seen++
		batch = append(batch, doc)
		if len(batch) >= a.cfg.Indexer.BatchSize {
			if err := flush(); err != nil {
				return seen, saved, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return seen, saved, err
	}
	return seen, saved, flush()
}

func newSimilarCmd(get func() *app) *cobra.Command {
	var (
		n    int
		full bool
	)
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "Show the documents most similar to a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if n == 0 {
				n = a.cfg.Search.DefaultN
			}
			var searcher indexer.Searcher = a.engine
			if full {
				searcher = fullSearcher{a.engine}
			}
			ix, err := indexer.New(a.store, searcher,
				func(ctx context.Context, text string) ([]float32, error) { return nil, errNoEmbedder },
				indexer.WithLogger(a.logger),
				indexer.WithMetrics(a.metrics),
			)
			if err != nil {
				return err
			}
			results, err := ix.Similar(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&full, "full", false, "score and sort the whole corpus instead of streaming")
	return cmd
}

func newScoreCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "score <id> <id>",
		Short: "Print the cosine similarity of two stored documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, ok, err := get().store.Score(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no comparable embeddings for %q and %q", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", score)
			return nil
		},
	}
}

// fullSearcher routes TopN to the full-materialization algorithm.
type fullSearcher struct{ engine *similarity.Engine }

func (f fullSearcher) TopN(ctx context.Context, query *vector.Document, n int) ([]similarity.Result, error) {
	return f.engine.TopNFull(ctx, query, n)
}

func newStatsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := get().store
			total, err := st.Count(cmd.Context())
			if err != nil {
				return err
			}
			embedded := 0
			if err := st.ScanWithEmbedding(cmd.Context(), func(*vector.Document) error {
				embedded++
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table=%s documents=%d embedded=%d\n", st.Table(), total, embedded)
			return nil
		},
	}
}

func newChangesCmd(get func() *app) *cobra.Command {
	var (
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Print change log entries after a sequence number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := get().store.Changes(cmd.Context(), after, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n", e.Seq, e.Op, e.DocumentID, e.Fingerprint, e.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "only entries with a greater sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of entries")
	return cmd
}

func newSessionCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage caller sessions",
	}
	withManager := func(fn func(cmd *cobra.Command, m *session.Manager, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := get().sessionManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, m, args)
		}
	}
	var subject string
	create := &cobra.Command{
		Use:   "create",
		Short: "Start a session",
		Args:  cobra.NoArgs,
		RunE: withManager(func(cmd *cobra.Command, m *session.Manager, args []string) error {
			s, err := m.Create(cmd.Context(), subject)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\texpires=%s\n", s.ID, s.ExpiresAt.Format(time.RFC3339))
			return nil
		}),
	}
	create.Flags().StringVar(&subject, "subject", "", "subject the session belongs to")

	show := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a live session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withManager(func(cmd *cobra.Command, m *session.Manager, args []string) error {
			s, err := m.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
		}),
	}
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired sessions",
		Args:  cobra.NoArgs,
		RunE: withManager(func(cmd *cobra.Command, m *session.Manager, args []string) error {
			n, err := m.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d\n", n)
			return nil
		}),
	}
	sweeper := &cobra.Command{
		Use:   "sweeper",
		Short: "Remove expired sessions every sweep_interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: withManager(func(cmd *cobra.Command, m *session.Manager, args []string) error {
			interval := get().cfg.Session.SweepInterval
			n, err := m.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d interval=%s\n", n, interval)
			err = m.Run(cmd.Context(), interval)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}),
	}
	cmd.AddCommand(create, show, sweep, sweeper)
	return cmd
}

func printDocuments(w io.Writer, docs []*vector.Document) {
	for _, d := range docs {
		dim := "-"
		if d.HasEmbedding() {
			dim = strconv.Itoa(len(d.Embedding))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, dim)
	}
}

func printResults(w io.Writer, results []similarity.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%s\t%s\n", r.Score, r.Document.ID, r.Document.Name)
	}
}
