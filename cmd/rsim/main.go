// Command rsim runs an assembled program on the pipelined core and prints
// the final registers and the run statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/api"
	"github.com/sarchlab/pipesim/config"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/memory"
	"github.com/sarchlab/pipesim/program"
	"github.com/tebeka/atexit"
)

var (
	textFlag      = flag.String("t", "", "text segment image")
	dataFlag      = flag.String("d", "", "data segment image")
	sourceFlag    = flag.String("s", "", "assembly source, used instead of -t and -d")
	policyFlag    = flag.String("b", "", "branch predictor: not-taken, taken, 2bit, 2level or 0-3")
	verboseFlag   = flag.Bool("v", false, "print the pipeline state every cycle and trace events")
	configFlag    = flag.String("config", "", "YAML run configuration")
	maxCyclesFlag = flag.Uint64("max-cycles", 0, "stop after this many cycles")
	traceFlag     = flag.String("trace", "", "write trace events to this file")
	monitorFlag   = flag.Bool("monitor", false, "serve the akita monitor and wait after the run")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}

	setupLogging(cfg)

	img, err := loadImage()
	if err != nil {
		fail(err)
	}

	engine := sim.NewSerialEngine()

	driver, err := api.DriverBuilder{}.
		WithEngine(engine).
		WithConfig(cfg).
		WithOutput(os.Stdout).
		WithStateOutput(os.Stdout).
		Build("RSim")
	if err != nil {
		fail(err)
	}

	if *monitorFlag {
		monitor := monitoring.NewMonitor()
		monitor.RegisterEngine(engine)
		monitor.RegisterComponent(driver.Platform().Core)
		monitor.StartServer()
	}

	if err := driver.Load(img); err != nil {
		fail(err)
	}

	res, runErr := driver.Run()
	if runErr != nil && !errors.Is(runErr, api.ErrCycleLimit) {
		fail(runErr)
	}

	fmt.Println()
	printResult(driver.Platform().Core, res)

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
	}

	if *monitorFlag {
		fmt.Fprintln(os.Stderr, "run finished; monitor still serving, interrupt to quit")
		time.Sleep(100 * time.Hour)
	}

	switch {
	case runErr != nil:
		atexit.Exit(1)
	case res.Halted:
		atexit.Exit(int(res.ExitCode))
	default:
		atexit.Exit(0)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	atexit.Exit(1)
}

// loadConfig starts from the file given by -config, or the defaults, and
// lets explicitly set flags override it.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	if *configFlag != "" {
		var err error

		cfg, err = config.Load(*configFlag)
		if err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "b":
			cfg.Predictor = *policyFlag
		case "v":
			cfg.Verbose = *verboseFlag
		case "max-cycles":
			cfg.MaxCycles = *maxCyclesFlag
		case "trace":
			cfg.TraceFile = *traceFlag
		}
	})

	return cfg, cfg.Validate()
}

func setupLogging(cfg config.Config) {
	var w io.Writer = os.Stderr

	if cfg.TraceFile != "" {
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			fail(err)
		}

		atexit.Register(func() { f.Close() })
		w = f
	}

	level := slog.LevelWarn
	if cfg.Verbose || cfg.TraceFile != "" {
		level = core.LevelTrace
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func loadImage() (*program.Image, error) {
	switch {
	case *sourceFlag != "":
		return program.AssembleFile(*sourceFlag)
	case *textFlag != "":
		return program.ReadImage(*textFlag, *dataFlag)
	default:
		return nil, errors.New("usage: rsim -t text [-d data] | -s source.asm [options]")
	}
}

func printResult(c *core.Core, res api.Result) {
	fmt.Printf("Predictor: %s\n", res.Policy)

	if res.Halted {
		fmt.Printf("Exit code: %d\n", res.ExitCode)
	}

	core.WriteRegisters(os.Stdout, c.Registers())
	core.WriteStats(os.Stdout, res.Stats)
	memory.WriteStats(os.Stdout, res.Memory)
}
