package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"genx-compile/internal/attribution"
	"genx-compile/internal/compile"
	"genx-compile/internal/config"
	"genx-compile/internal/model"
	"genx-compile/internal/report"
	"genx-compile/internal/store"
	"genx-compile/internal/transfer"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "compile":
		err = cmdCompile(ctx, os.Args[2:])
	case "attribute":
		err = cmdAttribute(ctx, os.Args[2:])
	case "transfer":
		err = cmdTransfer(ctx, os.Args[2:])
	case "cases":
		err = cmdCases(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli compile --root runs --config genx.yaml [--out reports] [--no-charts] [--db postgres://...]")
	fmt.Println("  cli attribute --root runs [--out \"Zone specific costs.csv\"]")
	fmt.Println("  cli transfer --root runs --from 2030 --to 2045")
	fmt.Println("  cli cases --root runs [--year 2030]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - compile writes the total and regional workbooks, charts and the attribution CSV")
	fmt.Println("  - transfer seeds a period's inputs with the previous period's final capacity")
}

// common flags shared by every subcommand.
type common struct {
	root    string
	config  string
	verbose bool
}

func (c *common) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.root, "root", "r", "", "Compilation root holding one folder per planning year")
	fs.StringVarP(&c.config, "config", "c", "", "Path to YAML config")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output")
}

func (c *common) load() (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cfg, err := config.LoadUnchecked(c.config)
	if err != nil {
		return nil, nil, err
	}
	if c.root != "" {
		cfg.Root = c.root
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func cmdCompile(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("compile", pflag.ExitOnError)
	var opts common
	opts.register(fs)
	outDir := fs.StringP("out", "o", "", "Output directory (default from config)")
	noCharts := fs.Bool("no-charts", false, "Skip PNG charts")
	noXLSX := fs.Bool("no-xlsx", false, "Skip the XLSX workbooks")
	dbURL := fs.String("db", "", "Postgres URL to store the run (default from config)")
	workers := fs.IntP("workers", "w", 0, "Cases loaded concurrently per period (default from config)")
	_ = fs.Parse(args)

	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *workers > 0 {
		cfg.Compile.Workers = *workers
	}
	if *dbURL != "" {
		cfg.Database.URL = *dbURL
	}

	compiler, err := compile.New(cfg, logger)
	if err != nil {
		return err
	}
	res, err := compiler.Run(ctx)
	if err != nil {
		return err
	}

	emit := report.Options{
		Dir:            cfg.Output.Dir,
		AttributionCSV: cfg.Output.AttributionCSV,
		Charts:         cfg.Output.ChartsEnabled() && !*noCharts,
		Orderings:      cfg.Presentation.Orderings(),
	}
	if !*noXLSX {
		emit.TotalWorkbook = cfg.Output.TotalWorkbook
		emit.RegionWorkbook = cfg.Output.RegionWorkbook
	}
	written, err := report.Emit(res, emit, logger)
	if err != nil {
		return err
	}

	if cfg.Database.URL != "" {
		db, err := store.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		if err := db.SaveRun(ctx, res); err != nil {
			return err
		}
		logger.Info("run stored", "run_id", res.RunID)
	}

	fmt.Printf("Compiled %d periods (run %s)\n", len(res.Periods), res.RunID)
	for _, p := range written {
		fmt.Printf("  wrote %s\n", p)
	}
	return nil
}

// cmdAttribute computes region-attributed costs without the full compile.
func cmdAttribute(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("attribute", pflag.ExitOnError)
	var opts common
	opts.register(fs)
	outPath := fs.StringP("out", "o", "", "Output CSV path (default from config)")
	_ = fs.Parse(args)

	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	if *outPath == "" {
		*outPath = filepath.Join(cfg.Output.Dir, cfg.Output.AttributionCSV)
	}
	compiler, err := compile.New(cfg, logger)
	if err != nil {
		return err
	}
	zones, err := cfg.ZoneMap()
	if err != nil {
		return err
	}
	years, err := compile.Years(cfg.Root)
	if err != nil {
		return err
	}

	var records []model.TradeAttributionRecord
	for _, year := range years {
		cases, err := compile.Cases(cfg.Root, year)
		if err != nil {
			return err
		}
		loaded, err := compiler.LoadCases(ctx, compile.Order(cfg.CaseOrder, cases))
		if err != nil {
			return fmt.Errorf("period %d: %w", year, err)
		}
		recs, err := attribution.Regions(year, zones, cfg.Attribution.Regions, loaded)
		if err != nil {
			return fmt.Errorf("period %d: %w", year, err)
		}
		records = append(records, recs...)
	}
	if err := report.WriteAttributionCSV(*outPath, records); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(records), *outPath)
	return nil
}

func cmdTransfer(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("transfer", pflag.ExitOnError)
	var opts common
	opts.register(fs)
	from := fs.Int("from", 0, "Planning year whose results are carried")
	to := fs.Int("to", 0, "Planning year whose inputs are updated")
	_ = fs.Parse(args)

	if *from == 0 || *to == 0 {
		return fmt.Errorf("--from and --to are required")
	}
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	if err := transfer.CheckPeriods(cfg.Root, *from, *to); err != nil {
		return err
	}
	compiler, err := compile.New(cfg, logger)
	if err != nil {
		return err
	}
	t := transfer.New(compiler.Resolver(), cfg.ExcludeResources, logger)
	outcomes, err := t.Run(ctx, cfg.Root, *from, *to)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		line := fmt.Sprintf("%-6s <- %-6s %s", o.Case.ID, o.Predecessor, o.Status)
		if o.Reason != "" {
			line += " (" + o.Reason + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func cmdCases(args []string) error {
	fs := pflag.NewFlagSet("cases", pflag.ExitOnError)
	root := fs.StringP("root", "r", ".", "Compilation root")
	year := fs.IntP("year", "y", 0, "Only this planning year")
	_ = fs.Parse(args)

	years := []int{*year}
	if *year == 0 {
		var err error
		if years, err = compile.Years(*root); err != nil {
			return err
		}
	}
	for _, y := range years {
		cases, err := compile.Cases(*root, y)
		if err != nil {
			return err
		}
		fmt.Printf("%d (%d cases)\n", y, len(cases))
		for _, c := range cases {
			fmt.Printf("  %-6s %-32s %s\n", c.ID, strconv.Quote(c.Label), c.Dir)
		}
	}
	return nil
}
