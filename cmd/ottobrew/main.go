// OttoBrew guides a pour-over brew: it turns a recipe into a timed pour
// schedule and walks you through it with cues.
//
// Usage:
//
//	ottobrew recipes
//	ottobrew schedule new-hybrid --beans 20 --flavor sour
//	ottobrew brew new-hybrid [--resume <id>] [--at <sec>]
//	ottobrew history
package main

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottobrew/internal/config"
	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
	"github.com/hammamikhairi/ottobrew/internal/storage"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ottobrew",
		Short:         "OttoBrew - a guided pour-over brewing timer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newRecipesCmd())
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newBrewCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// env is what every command needs: configuration, a logger, the recipe
// catalogue and the session store.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	recipes *recipe.MemorySource
	store   domain.SessionStore
	closers []io.Closer
}

// setup loads configuration and opens shared resources. Call close when
// done.
func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	e.log = e.openLog()

	e.recipes = recipe.NewMemorySource(e.log)
	if cfg.RecipesDir != "" {
		n, err := e.recipes.LoadDir(cfg.RecipesDir)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("loading recipes from %s: %w", cfg.RecipesDir, err)
		}
		if n > 0 {
			e.log.Info("loaded %d recipes from %s", n, cfg.RecipesDir)
		}
	}

	if cfg.DBPath == ":memory:" {
		e.store = storage.NewMemoryStore(e.log)
		return e, nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			e.close()
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := storage.OpenSQLite(cfg.DBPath, e.log)
	if err != nil {
		e.close()
		return nil, err
	}
	e.store = db
	e.closers = append(e.closers, db)
	return e, nil
}

// openLog directs logs to a file by default so the brew screen stays
// clean.
func (e *env) openLog() *logger.Logger {
	level := logger.LevelNormal
	if e.cfg.Verbose {
		level = logger.LevelVerbose
	}
	if e.cfg.Quiet {
		level = logger.LevelOff
	}

	var out io.Writer = os.Stderr
	if e.cfg.LogFile != "" && e.cfg.LogFile != "stderr" {
		if dir := filepath.Dir(e.cfg.LogFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(e.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", e.cfg.LogFile, err)
		} else {
			out = f
			e.closers = append(e.closers, f)
		}
	}

	// Third-party libs (the whisper transcriber) log through the standard
	// logger; keep them off the terminal too.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	return logger.New(level, out)
}

func (e *env) close() {
	// Close in reverse so the log file outlives the database.
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintln(os.Stderr, "warning: closing:", err)
	}
}
