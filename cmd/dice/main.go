// dice compiles and runs a dice script and prints the final pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	"golang.org/x/term"

	"github.com/chazu/dicescript/chart"
	"github.com/chazu/dicescript/compiler"
	"github.com/chazu/dicescript/manifest"
	"github.com/chazu/dicescript/store"
	"github.com/chazu/dicescript/vm"
	"github.com/chazu/dicescript/vm/dist"

	_ "github.com/tliron/commonlog/simple"
)

var (
	log   = commonlog.GetLogger("dicescript.cli")
	vmLog = commonlog.GetLogger("dicescript.vm")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line args and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: dice <script>\n\n")
		fmt.Fprintf(stderr, "Compiles and runs a dice script, then prints the final pool.\n")
		fmt.Fprintf(stderr, "Settings are read from the nearest %s at or above the script's directory.\n", manifest.FileName)
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  dice attack.dice       # roll once\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if fs.NArg() < 1 {
		// Usage is reported with status 0.
		fs.Usage()
		return 0
	}
	return execScript(fs.Arg(0), stdout, stderr)
}

// execScript executes the script at path and returns the process exit status.
func execScript(path string, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	src := string(data)

	m, err := manifest.FindAndLoad(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if m == nil {
		m = manifest.Default()
	}
	configureLogging(m)

	ctx := context.Background()
	var st *store.Store
	if p := m.StorePath(); p != "" {
		if st, err = store.Open(p); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer st.Close()
	}

	prog, programHash, err := load(ctx, st, src)
	if err != nil {
		var serr *compiler.SyntaxError
		if errors.As(err, &serr) {
			loc := serr.Location()
			fmt.Fprintf(stderr, "Compilation error at line %d:\n%s\n%s\n", loc.Line, loc.Text, serr.Msg)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	seed := m.Run.Seed
	if seed == 0 {
		seed = vm.NewSeed()
	}
	log.Debugf("running %s with seed %d", path, seed)

	exec := vm.NewExecutor(prog,
		vm.WithSeed(seed),
		vm.WithVerbosity(m.Run.Verbosity),
		vm.WithTraceOutput(stdout),
		vm.WithGrapher(chart.NewRenderer(stdout, chartWidth(stdout, m.Chart.Width))),
		vm.WithLogger(commonlog.NewScopeLogger(vmLog, filepath.Base(path))),
	)
	state, err := exec.Run(nil)
	if err != nil {
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			loc := rerr.Location()
			fmt.Fprintf(stderr, "Runtime error on line %d:\n%s\n%s: %v\n", loc.Line, loc.Text, rerr.Op, rerr.Err)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "%s\n", state.Pool)
	fmt.Fprintf(stdout, "Total: %d (%d dice)\n", state.Pool.Total(), state.Pool.Cardinality())
	if len(state.Stack) > 0 {
		fmt.Fprintf(stdout, "Stack: %v\n", state.Stack)
	}

	if st != nil {
		record(ctx, st, store.Run{
			ProgramHash: programHash,
			Seed:        seed,
			Cardinality: state.Pool.Cardinality(),
			Total:       state.Pool.Total(),
		})
	}
	return 0
}

// record appends r to the run log. A store failure is logged, not fatal:
// the run itself already succeeded.
func record(ctx context.Context, st *store.Store, r store.Run) {
	r, err := st.RecordRun(ctx, r)
	if err != nil {
		log.Warningf("run not recorded: %v", err)
		return
	}
	runs, err := st.Runs(ctx, r.ProgramHash)
	if err != nil {
		log.Warningf("reading run log: %v", err)
		return
	}
	log.Infof("recorded run %s, %d runs of program %.12s so far", r.ID, len(runs), r.ProgramHash)
}

// load compiles src, going through the program cache when there is one.
// The program hash is only known when a store is in use.
func load(ctx context.Context, st *store.Store, src string) (*vm.Program, string, error) {
	if st == nil {
		p, err := compiler.Compile(src)
		return p, "", err
	}

	key := dist.SourceHash(src)
	p, err := st.LookupProgram(ctx, key)
	if err == nil {
		hash, err := dist.ProgramHash(p)
		return p, hash, err
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warningf("program cache unavailable: %v", err)
	}

	p, err = compiler.Compile(src)
	if err != nil {
		return nil, "", err
	}
	hash, err := st.SaveProgram(ctx, key, p)
	if err != nil {
		return nil, "", err
	}
	return p, hash, nil
}

func configureLogging(m *manifest.Manifest) {
	var path *string
	if p := m.LogPath(); p != "" {
		path = &p
	}
	commonlog.Configure(m.Log.Verbosity, path)
}

// chartWidth narrows the configured bar width to fit a terminal.
func chartWidth(w io.Writer, width int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return width
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return width
	}
	// label, separator, percentage and quartile markers
	const margin = 30
	return max(10, min(width, cols-margin))
}
