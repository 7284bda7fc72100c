package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/pipesim/api"
	"github.com/sarchlab/pipesim/config"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/program"
)

// PolicyRun is the outcome of running the program on the pipelined core
// under one branch prediction policy.
type PolicyRun struct {
	Policy     core.Policy
	Result     api.Result
	Output     string
	Err        error
	Mismatches []string
}

// OK reports whether the run finished and matched the reference.
func (r PolicyRun) OK() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Instructions  int
	LintIssues    []Issue
	StructIssues  []Issue
	ControlIssues []Issue

	SimulationErr error
	SimulationOK  bool
	Reference     *FunctionalSimulator
	RefOutput     string

	Runs []PolicyRun
}

// GenerateReport runs lint, the functional simulator and the pipelined core
// under every policy, and returns a report. The predictor named in cfg is
// ignored; every policy is run.
func GenerateReport(
	img *program.Image,
	cfg config.Config,
	maxSimSteps int,
) *VerificationReport {
	report := &VerificationReport{
		Instructions: img.NumInstructions(),
	}

	report.LintIssues = RunLint(img)

	for _, issue := range report.LintIssues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.ControlIssues = append(report.ControlIssues, issue)
		}
	}

	t, err := cfg.Table()
	if err != nil {
		report.SimulationErr = err
		return report
	}

	refOut := new(bytes.Buffer)

	fs, err := NewFunctionalSimulator(img, t, refOut)
	if err != nil {
		report.SimulationErr = err
		return report
	}

	report.Reference = fs
	report.SimulationErr = fs.Run(maxSimSteps)
	report.SimulationOK = report.SimulationErr == nil
	report.RefOutput = refOut.String()

	if !report.SimulationOK {
		return report
	}

	for _, p := range core.Policies() {
		report.Runs = append(report.Runs, report.runPolicy(img, cfg, p))
	}

	return report
}

func (r *VerificationReport) runPolicy(
	img *program.Image,
	cfg config.Config,
	p core.Policy,
) PolicyRun {
	cfg.Predictor = p.String()
	cfg.Verbose = false

	run := PolicyRun{Policy: p}
	out := new(bytes.Buffer)

	d, err := api.DriverBuilder{}.
		WithConfig(cfg).
		WithOutput(out).
		Build("Verify")
	if err != nil {
		run.Err = err
		return run
	}

	if err := d.Load(img); err != nil {
		run.Err = err
		return run
	}

	run.Result, run.Err = d.Run()
	run.Output = out.String()

	if run.Err != nil {
		return run
	}

	run.Mismatches = r.compare(img, d, run)

	return run
}

func (r *VerificationReport) compare(
	img *program.Image,
	d api.Driver,
	run PolicyRun,
) []string {
	var diffs []string

	ref := r.Reference
	regs := ref.Registers()

	for i := range regs {
		if regs[i] != run.Result.Registers[i] {
			diffs = append(diffs, fmt.Sprintf("$%d = %d, want %d",
				i, int32(run.Result.Registers[i]), int32(regs[i])))
		}
	}

	if ref.Halted() != run.Result.Halted {
		diffs = append(diffs, fmt.Sprintf("halted = %v, want %v",
			run.Result.Halted, ref.Halted()))
	}

	if ref.ExitCode() != run.Result.ExitCode {
		diffs = append(diffs, fmt.Sprintf("exit code = %d, want %d",
			run.Result.ExitCode, ref.ExitCode()))
	}

	if r.RefOutput != run.Output {
		diffs = append(diffs, fmt.Sprintf("output = %q, want %q",
			run.Output, r.RefOutput))
	}

	if size := len(img.Data); size > 0 {
		got := d.Platform().Memory.Read(img.DataBase, size)
		want := ref.Memory().Read(img.DataBase, size)

		if !bytes.Equal(got, want) {
			diffs = append(diffs, "data segment differs")
		}
	}

	return diffs
}

// Passed reports whether there are no STRUCT issues, the reference run
// finished, and every policy matched it.
func (r *VerificationReport) Passed() bool {
	if len(r.StructIssues) > 0 || !r.SimulationOK {
		return false
	}

	for _, run := range r.Runs {
		if !run.OK() {
			return false
		}
	}

	return true
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "PIPELINE VERIFICATION REPORT")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "\nLoaded %d instruction slots\n", r.Instructions)

	// STAGE 1: LINT
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "No lint issues found")
	} else {
		r.writeIssues(w)
	}

	// STAGE 2: FUNCTIONAL SIMULATION
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: FUNCTIONAL SIMULATION")
	fmt.Fprintln(w, separator)

	if r.SimulationOK {
		fmt.Fprintf(w, "Completed in %d steps, exit code %d\n",
			r.Reference.Steps(), r.Reference.ExitCode())
	} else {
		fmt.Fprintf(w, "Simulation error: %v\n", r.SimulationErr)
	}

	// STAGE 3: PIPELINE
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 3: PIPELINE VS REFERENCE")
	fmt.Fprintln(w, separator)

	if len(r.Runs) > 0 {
		r.writeRuns(w)
	} else {
		fmt.Fprintln(w, "Skipped")
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "VERIFICATION SUMMARY")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Lint Result: %d issues detected (%d STRUCT, %d CONTROL)\n",
		len(r.LintIssues), len(r.StructIssues), len(r.ControlIssues))

	if r.Passed() {
		fmt.Fprintln(w, "PROGRAM PASSED ALL CHECKS")
	} else {
		fmt.Fprintln(w, "PROGRAM FAILED VERIFICATION")
	}

	fmt.Fprintln(w)
}

func (r *VerificationReport) writeIssues(w io.Writer) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%d lint issues", len(r.LintIssues)))
	t.AppendHeader(table.Row{"Type", "Slot", "PC", "Line", "Message"})

	for _, issue := range r.LintIssues {
		slot, pc, line := "-", "-", "-"
		if issue.Slot >= 0 {
			slot = fmt.Sprint(issue.Slot)
			pc = fmt.Sprintf("0x%08x", issue.PC)
		}

		if issue.Line > 0 {
			line = fmt.Sprint(issue.Line)
		}

		t.AppendRow(table.Row{issue.Type, slot, pc, line, issue.Message})
	}

	fmt.Fprintln(w, t.Render())
}

func (r *VerificationReport) writeRuns(w io.Writer) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{
		"Policy", "Cycles", "Retired", "CPI", "Hits", "Misses", "Status",
	})

	for _, run := range r.Runs {
		s := run.Result.Stats
		status := "match"

		switch {
		case run.Err != nil:
			status = run.Err.Error()
		case len(run.Mismatches) > 0:
			status = strings.Join(run.Mismatches, "; ")
		}

		t.AppendRow(table.Row{
			run.Policy, s.Cycles, s.Retired, fmt.Sprintf("%.3f", s.CPI()),
			s.BPHits, s.BPMisses, status,
		})
	}

	fmt.Fprintln(w, t.Render())
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)

	return nil
}
