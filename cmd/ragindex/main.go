package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/extract"
	"ragindex/internal/logging"
	"ragindex/internal/service"
	"ragindex/internal/tui"
)

type app struct {
	cfgPath string
	dataDir string
	cfg     *config.AppConfig
	engine  *service.Engine
	loader  *extract.Loader
}

func main() {
	_ = godotenv.Load()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "ragindex",
		Short: "Index documents and search them by meaning",
		Long: "ragindex chunks PDF and text documents, embeds the chunks into a flat vector index " +
			"persisted on disk, and answers ranked similarity queries over them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.engine != nil {
				a.engine.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragindex/config.yaml if not provided)")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data", "", "Directory with source documents (overrides data.dir)")

	rootCmd.AddCommand(createBuildCommand(a))
	rootCmd.AddCommand(createSearchCommand(a))
	rootCmd.AddCommand(createDocsCommand(a))
	rootCmd.AddCommand(createContextCommand(a))
	rootCmd.AddCommand(createAskCommand(a))
	rootCmd.AddCommand(createTUICommand(a))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func (a *app) setup() error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dataDir != "" {
		a.cfg.Data.Dir = a.dataDir
	}
	logger, err := logging.New(os.Stderr, a.cfg.Logging)
	if err != nil {
		return err
	}
	a.loader = extract.NewLoader(logger)
	a.engine, err = assemble(a.cfg, logger)
	return err
}

func (a *app) source(ctx context.Context) ([]domain.Document, error) {
	return a.loader.LoadDir(ctx, a.cfg.Data.Dir)
}

// ready loads the stored index, building it from the data directory when
// none is usable.
func (a *app) ready(ctx context.Context) error {
	return a.engine.LoadOrBuild(ctx, a.source, false)
}

func createBuildCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Extract, chunk and embed all documents, then save the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.LoadOrBuild(cmd.Context(), a.source, true); err != nil {
				return err
			}
			st := a.engine.Status()
			fmt.Printf("Indexed %d chunks from %d documents (model %s, dimension %d) into %s\n",
				st.Chunks, len(st.Documents), st.Model, st.Dimension, a.cfg.Store.Path)
			return nil
		},
	}
}

func createSearchCommand(a *app) *cobra.Command {
	var (
		document string
		topK     int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(cmd.Context()); err != nil {
				return err
			}
			if topK <= 0 {
				topK = a.cfg.Retrieval.TopK
			}
			query := strings.Join(args, " ")
			var (
				results []domain.SearchResult
				err     error
			)
			if document != "" {
				results, err = a.engine.SearchByDocument(cmd.Context(), document, query, topK)
			} else {
				results, err = a.engine.Search(cmd.Context(), query, topK)
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%d. [%.3f] %s (part %d)\n   %s\n", r.Rank, r.Score, r.Document, r.ChunkIndex+1, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&document, "doc", "d", "", "Restrict results to one document")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default retrieval.top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func createDocsCommand(a *app) *cobra.Command {
	var summaries bool
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List indexed documents and their chunk counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(cmd.Context()); err != nil {
				return err
			}
			if !summaries {
				info := a.engine.DocumentInfo()
				names := make([]string, 0, len(info))
				for name := range info {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("%-40s %d\n", name, info[name])
				}
				return nil
			}
			overview, err := a.engine.Overview(a.cfg.Summarizer.MaxSentences)
			if err != nil {
				return err
			}
			for _, o := range overview {
				fmt.Printf("%s: %d chunks, %d characters (avg %d)\n  %s\n\n",
					o.Name, o.ChunkCount, o.TotalLength, o.AvgChunkLength, o.Summary)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&summaries, "summary", "s", false, "Include statistics and an extractive summary per document")
	return cmd
}

func createContextCommand(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Print the context block that would be sent to a generator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(cmd.Context()); err != nil {
				return err
			}
			if topK <= 0 {
				topK = a.cfg.Retrieval.TopK
			}
			block, err := a.engine.ContextForQuery(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			fmt.Println(block)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks (default retrieval.top_k)")
	return cmd
}

func createAskCommand(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from retrieved context with the configured generator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(cmd.Context()); err != nil {
				return err
			}
			if topK <= 0 {
				topK = a.cfg.Retrieval.TopK
			}
			advice, err := a.engine.Advise(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			fmt.Println(advice.Answer)
			if len(advice.Sources) > 0 {
				fmt.Printf("\nSources: %s\n", strings.Join(advice.Sources, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of context chunks (default retrieval.top_k)")
	return cmd
}

func createTUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(cmd.Context()); err != nil {
				return err
			}
			st := a.engine.Status()
			summary := fmt.Sprintf("%d documents, %d chunks, %s", len(st.Documents), st.Chunks, st.Model)
			m := tui.New(a.engine, summary, a.cfg.Retrieval.TopK)
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
