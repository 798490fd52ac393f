// Command seed manages the question catalog and can simulate learner
// traffic against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/quizwise/backend/internal/catalog"
	"github.com/quizwise/backend/internal/infrastructure/config"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/simulation"
	"github.com/quizwise/backend/internal/store"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importInput := importCmd.String("input", "", "Catalog file, .yaml/.yml or .json (required)")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOutput := exportCmd.String("output", "", "Output file (default: catalog_YYYYMMDD_HHMMSS.yaml)")

	simulateCmd := flag.NewFlagSet("simulate", flag.ExitOnError)
	simLearners := simulateCmd.Int("learners", 10, "Number of simulated learners")
	simArea := simulateCmd.String("area", "", "Area ID; all of its units are used (required)")
	simCount := simulateCmd.Int("questions", 10, "Questions per session")
	simAccuracy := simulateCmd.Float64("accuracy", 0.7, "Probability of a correct answer")
	simSkip := simulateCmd.Float64("skip", 0.05, "Probability of skipping a question")
	simSeed := simulateCmd.Int64("seed", time.Now().UnixNano(), "Random seed")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, db, logger, *importInput)

	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, db, *exportOutput)

	case "simulate":
		simulateCmd.Parse(os.Args[2:])
		if *simArea == "" {
			fmt.Println("Error: -area flag is required")
			simulateCmd.PrintDefaults()
			os.Exit(1)
		}
		handleSimulate(ctx, db, logger, cfg, simulation.Options{
			Learners:      *simLearners,
			AreaID:        *simArea,
			QuestionCount: *simCount,
			Accuracy:      *simAccuracy,
			SkipRate:      *simSkip,
			Workers:       cfg.PersistWorkers,
			Seed:          *simSeed,
		})

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleImport(ctx context.Context, db store.Backend, logger *slog.Logger, path string) {
	format, err := catalog.FormatFor(path)
	if err != nil {
		fatal("unsupported input", err)
	}
	f, err := os.Open(path)
	if err != nil {
		fatal("failed to open input", err)
	}
	defer f.Close()

	doc, err := catalog.Decode(f, format)
	if err != nil {
		fatal("failed to read catalog", err)
	}
	result, err := catalog.Import(ctx, db, doc, logger)
	if err != nil {
		fatal("import failed", err)
	}

	fmt.Printf("Imported %d area(s), %d unit(s), %d question(s)", result.AreasCreated, result.UnitsCreated, result.QuestionsCreated)
	if result.QuestionsSkipped > 0 {
		fmt.Printf(", skipped %d invalid question(s)", result.QuestionsSkipped)
	}
	fmt.Println()
}

func handleExport(ctx context.Context, db store.Backend, path string) {
	if path == "" {
		path = fmt.Sprintf("catalog_%s.yaml", time.Now().Format("20060102_150405"))
	}
	format, err := catalog.FormatFor(path)
	if err != nil {
		fatal("unsupported output", err)
	}

	doc, err := catalog.Export(ctx, db, time.Now())
	if err != nil {
		fatal("export failed", err)
	}

	f, err := os.Create(path)
	if err != nil {
		fatal("failed to create output", err)
	}
	defer f.Close()
	if err := catalog.Encode(f, doc, format); err != nil {
		fatal("failed to write catalog", err)
	}
	fmt.Printf("Exported %d area(s) to %s\n", len(doc.Areas), path)
}

func handleSimulate(ctx context.Context, db store.Backend, logger *slog.Logger, cfg *config.Config, opts simulation.Options) {
	units, err := db.ListUnits(ctx, opts.AreaID)
	if err != nil {
		fatal("failed to list units", err)
	}
	if len(units) == 0 {
		fatal("area has no units", fmt.Errorf("area %s", opts.AreaID))
	}
	for _, u := range units {
		opts.UnitIDs = append(opts.UnitIDs, u.ID)
	}

	recorder := service.NewRecorder(db, logger, cfg.PersistRetries, cfg.PersistRetryDelay)
	sessions := service.NewSessionService(db, recorder, logger, service.SessionOptions{
		PoolLimit:      cfg.PoolLimit,
		PersistWorkers: cfg.PersistWorkers,
	})
	defer sessions.Close()

	summaries, err := simulation.Run(ctx, sessions, opts)
	if err != nil {
		fatal("simulation failed", err)
	}

	failed := 0
	for _, s := range summaries {
		if s.Err != nil {
			failed++
			logger.Warn("simulated session failed", "learner_id", s.LearnerID, "error", s.Err)
			continue
		}
		fmt.Printf("%-18s %2d/%-2d  %6.2f pts\n", s.LearnerID, s.Correct, s.Total, s.Points)
	}
	if failed > 0 {
		fmt.Printf("%d of %d simulated sessions failed\n", failed, len(summaries))
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(strings.TrimSpace(`
Usage: seed <command> [options]

Commands:
  import    Load a YAML or JSON catalog into the database
  export    Write the catalog to a YAML or JSON file
  simulate  Play sessions for simulated learners

Examples:
  seed import -input catalog.yaml
  seed export -output catalog.json
  seed simulate -area <area-id> -learners 25 -accuracy 0.8
`))
}
