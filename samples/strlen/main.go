package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/pipesim/api"
	"github.com/sarchlab/pipesim/config"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/program"
	"github.com/tebeka/atexit"
)

//go:embed strlen.asm
var source string

type policyRun struct {
	policy core.Policy
	result api.Result
	output string
}

func runPolicies(src string) ([]policyRun, error) {
	img, err := program.Assemble(src)
	if err != nil {
		return nil, err
	}

	var runs []policyRun

	for _, p := range core.Policies() {
		cfg := config.Default()
		cfg.Predictor = p.String()

		out := new(bytes.Buffer)

		res, err := api.Simulate(cfg, img, out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		runs = append(runs, policyRun{policy: p, result: res, output: out.String()})
	}

	return runs, nil
}

func main() {
	runs, err := runPolicies(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	fmt.Print("program output: ", runs[0].output)

	t := table.NewWriter()
	t.SetTitle("strlen")
	t.AppendHeader(table.Row{
		"Predictor", "Cycles", "CPI", "Hits", "Misses", "Accuracy",
		"Stalls", "Forwards", "Squashed",
	})

	for _, run := range runs {
		s := run.result.Stats
		t.AppendRow(table.Row{
			run.policy, s.Cycles, fmt.Sprintf("%.3f", s.CPI()),
			s.BPHits, s.BPMisses, fmt.Sprintf("%.1f%%", 100*s.Accuracy()),
			s.Stalls, s.Forwards, s.Squashed,
		})
	}

	fmt.Println(t.Render())
	atexit.Exit(0)
}
