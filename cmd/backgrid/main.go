// Command backgrid fits grid background models over PNG images.
//
// In one-shot mode it reads an input image, fits a model, and writes the
// reconstructed background (plus optional derived outputs) to a directory.
// With -serve it runs the HTTP API instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/backgrid/api"
	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/config"
	"github.com/banshee-data/backgrid/internal/imaging"
	"github.com/banshee-data/backgrid/internal/monitor"
	sqlite "github.com/banshee-data/backgrid/internal/storage/sqlite"
	"github.com/banshee-data/backgrid/internal/version"
)

// Config holds the command line configuration.
type Config struct {
	Input       string
	ConfigPath  string
	OutputDir   string
	TileX       int
	TileY       int
	Stat        string
	Interp      string
	Undersample string
	ClipSigma   float64
	ClipIters   int

	DBPath        string
	MigrationsDir string
	SourceID      string

	ServeAddr   string
	Profile     bool
	ShowVersion bool

	setFlags map[string]bool
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.Input, "input", "", "Path to input PNG image")
	flag.StringVar(&cfg.ConfigPath, "config", "", "JSON file with fit defaults (see config/backgrid.defaults.json)")
	flag.StringVar(&cfg.OutputDir, "output", "out", "Output directory for rendered images")
	flag.IntVar(&cfg.TileX, "tile-x", 64, "Tile width in pixels")
	flag.IntVar(&cfg.TileY, "tile-y", 64, "Tile height in pixels")
	flag.StringVar(&cfg.Stat, "stat", "meanclip", "Per-tile statistic: mean, median, meanclip")
	flag.StringVar(&cfg.Interp, "interp", "akima", "Interpolation style: none, constant, linear, natural-spline, akima")
	flag.StringVar(&cfg.Undersample, "undersample", "throw", "Undersampled tile policy: throw, reduce, extrapolate")
	flag.Float64Var(&cfg.ClipSigma, "clip-sigma", 3.0, "Sigma threshold for meanclip")
	flag.IntVar(&cfg.ClipIters, "clip-iters", 3, "Clip iterations for meanclip")
	flag.StringVar(&cfg.DBPath, "db", "", "SQLite database path; snapshots are persisted when set")
	flag.StringVar(&cfg.MigrationsDir, "migrations", "migrations", "Directory containing schema migrations")
	flag.StringVar(&cfg.SourceID, "source", "", "Source identifier recorded with persisted snapshots")
	flag.StringVar(&cfg.ServeAddr, "serve", "", "Run the HTTP API on this address (e.g. :8080) instead of one-shot mode")
	flag.BoolVar(&cfg.Profile, "profile", false, "Also write a profile plot of the fitted surface")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version information and exit")

	flag.Parse()

	cfg.setFlags = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { cfg.setFlags[f.Name] = true })
	return cfg
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("backgrid %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if cfg.ServeAddr != "" {
		if err := serve(cfg); err != nil {
			log.Fatalf("serve failed: %v", err)
		}
		return
	}

	if cfg.Input == "" {
		log.Fatal("input image is required (or use -serve)")
	}
	if err := run(cfg); err != nil {
		log.Fatalf("backgrid failed: %v", err)
	}
}

// buildControl merges the fit control from three layers: built-in
// defaults, then the -config file, then any explicitly set flags.
func buildControl(cfg Config) (bgestimate.Control, error) {
	ctrl := bgestimate.DefaultControl(cfg.TileX, cfg.TileY)
	if cfg.ConfigPath != "" {
		defaults, err := config.LoadFitDefaults(cfg.ConfigPath)
		if err != nil {
			return ctrl, err
		}
		ctrl = defaults.Control()
		if cfg.setFlags["tile-x"] {
			ctrl.TileSizeX = cfg.TileX
		}
		if cfg.setFlags["tile-y"] {
			ctrl.TileSizeY = cfg.TileY
		}
	}

	if cfg.ConfigPath == "" || cfg.setFlags["stat"] {
		stat, err := bgestimate.ParseStatistic(cfg.Stat)
		if err != nil {
			return ctrl, err
		}
		ctrl.Statistic = stat
	}
	if cfg.ConfigPath == "" || cfg.setFlags["interp"] {
		style, err := bgestimate.ParseInterpStyle(cfg.Interp)
		if err != nil {
			return ctrl, err
		}
		ctrl.Interp = style
	}
	if cfg.ConfigPath == "" || cfg.setFlags["undersample"] {
		us, err := bgestimate.ParseUndersampleStyle(cfg.Undersample)
		if err != nil {
			return ctrl, err
		}
		ctrl.Undersample = us
	}
	if cfg.ConfigPath == "" || cfg.setFlags["clip-sigma"] {
		ctrl.ClipSigma = cfg.ClipSigma
	}
	if cfg.ConfigPath == "" || cfg.setFlags["clip-iters"] {
		ctrl.ClipIters = cfg.ClipIters
	}
	return ctrl, nil
}

func run(cfg Config) error {
	ctrl, err := buildControl(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	img, err := imaging.DecodePNG(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	bg, err := bgestimate.New(img, ctrl)
	if err != nil {
		return fmt.Errorf("fit background: %w", err)
	}
	log.Printf("fitted %s", bg)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rendered, err := bg.GetImage()
	if err != nil {
		return fmt.Errorf("render background: %w", err)
	}
	if err := writePNG(filepath.Join(cfg.OutputDir, "background.png"), rendered); err != nil {
		return err
	}

	subtracted := img.Clone()
	if err := bg.Subtract(subtracted); err != nil {
		return fmt.Errorf("subtract background: %w", err)
	}
	if err := writePNG(filepath.Join(cfg.OutputDir, "subtracted.png"), subtracted); err != nil {
		return err
	}

	if err := writePNG(filepath.Join(cfg.OutputDir, "stats.png"), bg.StatsImage()); err != nil {
		return err
	}

	if cfg.Profile {
		box := bg.ImageBBox()
		p, err := monitor.ProfilePlot(bg, monitor.AxisRow, box.MinY+box.Height/2)
		if err != nil {
			return fmt.Errorf("profile plot: %w", err)
		}
		if err := monitor.SavePNG(p, filepath.Join(cfg.OutputDir, "profile.png")); err != nil {
			return fmt.Errorf("save profile plot: %w", err)
		}
	}

	if cfg.DBPath != "" {
		store, cleanup, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		sourceID := cfg.SourceID
		if sourceID == "" {
			sourceID = filepath.Base(cfg.Input)
		}
		id, err := bg.Persist(store, sourceID)
		if err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
		log.Printf("persisted snapshot %d for source %s", id, sourceID)
	}

	log.Printf("wrote outputs to %s", cfg.OutputDir)
	return nil
}

func serve(cfg Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("-serve requires -db")
	}
	store, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(api.Config{Address: cfg.ServeAddr, Store: store})
	return server.Start(ctx)
}

func openStore(cfg Config) (*sqlite.SnapshotStore, func(), error) {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return sqlite.NewSnapshotStore(db), func() { db.Close() }, nil
}

func writePNG(path string, img *imaging.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := imaging.EncodePNG(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
