package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"
	"github.com/ig248/exchange-calendars/internal/config"
	"github.com/ig248/exchange-calendars/internal/registry"
	"github.com/ig248/exchange-calendars/internal/source"
	"github.com/ig248/exchange-calendars/internal/store"
	"github.com/ig248/exchange-calendars/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: xcal <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  calendars   List registered calendars\n")
		fmt.Fprintf(os.Stderr, "  sessions    Print sessions in a date range\n")
		fmt.Fprintf(os.Stderr, "  schedule    Print schedule rows in a date range\n")
		fmt.Fprintf(os.Stderr, "  minutes     Print the trading minutes of one session\n")
		fmt.Fprintf(os.Stderr, "  export      Export a schedule to SQLite and Parquet\n")
		fmt.Fprintf(os.Stderr, "  verify      Cross-check a calendar against the Alpaca feed\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("xcal %s\n", version)

	case "calendars":
		err = runCalendars(os.Args[2:])

	case "sessions":
		err = runSessions(os.Args[2:])

	case "schedule":
		err = runSchedule(os.Args[2:])

	case "minutes":
		err = runMinutes(os.Args[2:])

	case "export":
		err = runExport(os.Args[2:])

	case "verify":
		err = runVerify(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("xcal %s: %v", os.Args[1], err)
	}
}

// ---------------------------------------------------------------------------
// Shared setup
// ---------------------------------------------------------------------------

// calFlags is the flag set shared by calendar-querying commands.
type calFlags struct {
	fs       *flag.FlagSet
	name     string
	start    string
	end      string
	side     string
	cfgPath  string
	cfg      *config.Config
	registry *registry.Registry
}

func newCalFlags(cmd string) *calFlags {
	f := &calFlags{fs: flag.NewFlagSet(cmd, flag.ExitOnError)}
	f.fs.StringVar(&f.name, "calendar", "XNYS", "calendar name")
	f.fs.StringVar(&f.start, "start", "", "range start (YYYY-MM-DD, default from config)")
	f.fs.StringVar(&f.end, "end", "", "range end (YYYY-MM-DD, default from config)")
	f.fs.StringVar(&f.side, "side", "", "minute side: both, left, right, neither (default from config)")
	f.fs.StringVar(&f.cfgPath, "config", "", "config file path (default config/xcal.yaml or $XCAL_CONFIG)")
	return f
}

// parse loads config, applies flag overrides, and builds the registry.
func (f *calFlags) parse(args []string) error {
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	cfgPath := f.cfgPath
	if cfgPath == "" {
		cfgPath = "config/xcal.yaml"
		if p := os.Getenv("XCAL_CONFIG"); p != "" {
			cfgPath = p
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	f.cfg = cfg

	if f.start == "" {
		f.start = cfg.Calendars.Start
	}
	if f.end == "" {
		f.end = cfg.Calendars.End
	}
	if f.side == "" {
		f.side = cfg.Calendars.Side
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	f.registry = registry.New(logger)
	if dir := cfg.Calendars.DefinitionsDir; dir != "" {
		defs, err := registry.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("loading calendar definitions: %w", err)
		}
		for _, def := range defs {
			if err := f.registry.Register(def); err != nil {
				return fmt.Errorf("registering %s: %w", def.Name, err)
			}
		}
	}
	return nil
}

func (f *calFlags) open() (*calendar.Calendar, error) {
	start, err := calendar.ParseDate(f.start)
	if err != nil {
		return nil, fmt.Errorf("-start: %w", err)
	}
	end, err := calendar.ParseDate(f.end)
	if err != nil {
		return nil, fmt.Errorf("-end: %w", err)
	}
	side, err := calendar.ParseSide(f.side)
	if err != nil {
		return nil, fmt.Errorf("-side: %w", err)
	}
	return f.registry.Get(f.name, start, end, side)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func runCalendars(args []string) error {
	f := newCalFlags("calendars")
	if err := f.parse(args); err != nil {
		return err
	}
	for _, name := range f.registry.Names() {
		fmt.Println(name)
	}
	return nil
}

func runSessions(args []string) error {
	f := newCalFlags("sessions")
	if err := f.parse(args); err != nil {
		return err
	}
	cal, err := f.open()
	if err != nil {
		return err
	}
	for _, d := range cal.Sessions() {
		fmt.Println(d)
	}
	return nil
}

func runSchedule(args []string) error {
	f := newCalFlags("schedule")
	if err := f.parse(args); err != nil {
		return err
	}
	cal, err := f.open()
	if err != nil {
		return err
	}

	for _, d := range cal.Sessions() {
		row, err := cal.Schedule(d)
		if err != nil {
			return err
		}
		if row.HasBreak() {
			fmt.Printf("%s  open %s  break %s..%s  close %s\n",
				row.Session,
				row.Open.UTC().Format("15:04"),
				row.BreakStart.UTC().Format("15:04"),
				row.BreakEnd.UTC().Format("15:04"),
				row.Close.UTC().Format("15:04"))
		} else {
			fmt.Printf("%s  open %s  close %s\n",
				row.Session,
				row.Open.UTC().Format("15:04"),
				row.Close.UTC().Format("15:04"))
		}
	}
	return nil
}

func runMinutes(args []string) error {
	f := newCalFlags("minutes")
	var session string
	f.fs.StringVar(&session, "session", "", "session date (YYYY-MM-DD)")
	if err := f.parse(args); err != nil {
		return err
	}
	cal, err := f.open()
	if err != nil {
		return err
	}

	d, err := calendar.ParseDate(session)
	if err != nil {
		return fmt.Errorf("-session: %w", err)
	}
	seq, err := cal.SessionMinutes(d)
	if err != nil {
		return err
	}
	for m := range seq {
		fmt.Println(m.UTC().Format("2006-01-02T15:04Z"))
	}
	return nil
}

func runExport(args []string) error {
	f := newCalFlags("export")
	if err := f.parse(args); err != nil {
		return err
	}
	cal, err := f.open()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rows := make([]calendar.Row, 0, len(cal.Sessions()))
	for _, d := range cal.Sessions() {
		row, err := cal.Schedule(d)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if path := f.cfg.Storage.SQLitePath; path != "" {
		db, err := store.NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("opening SQLite store: %w", err)
		}
		defer db.Close()
		if err := db.SaveSchedule(ctx, cal.Name(), rows); err != nil {
			return fmt.Errorf("saving schedule: %w", err)
		}
		fmt.Printf("saved %d sessions to %s\n", len(rows), path)
	}

	ps := store.NewParquetStore(f.cfg.Storage.DataDir)
	if err := ps.ExportSchedule(ctx, cal.Name(), rows); err != nil {
		return fmt.Errorf("exporting schedule: %w", err)
	}

	var minutes []time.Time
	for _, d := range cal.Sessions() {
		seq, err := cal.SessionMinutes(d)
		if err != nil {
			return err
		}
		for m := range seq {
			minutes = append(minutes, m)
		}
	}
	if err := ps.ExportMinutes(ctx, cal.Name(), minutes); err != nil {
		return fmt.Errorf("exporting minutes: %w", err)
	}
	fmt.Printf("exported %d sessions and %d minutes to %s\n",
		len(rows), len(minutes), f.cfg.Storage.DataDir)
	return nil
}

func runVerify(args []string) error {
	f := newCalFlags("verify")
	if err := f.parse(args); err != nil {
		return err
	}
	cal, err := f.open()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src := source.NewAlpacaSource(f.cfg.Alpaca.APIKey, f.cfg.Alpaca.APISecret, f.cfg.Alpaca.BaseURL)

	start, end := cal.Bounds()
	diffs, err := src.Verify(ctx, cal, start, end)
	if err != nil {
		return err
	}

	if len(diffs) == 0 {
		fmt.Println("calendar matches the remote feed")
		return nil
	}
	for _, d := range diffs {
		fmt.Printf("%s  %s\n", d.Date, d.Kind)
	}
	return fmt.Errorf("%d discrepancies found", len(diffs))
}
