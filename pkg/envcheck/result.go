// Package envcheck verifies the host environment for mobile UI automation:
// scripting runtime, Java, the Appium server and its drivers, and the
// platform SDK toolchains. Checks accumulate into a single result so the
// final report is complete even when early stages fail.
package envcheck

import (
	"fmt"
	"io"
	"sync"
)

// Detail holds per-component probe findings.
type Detail struct {
	Version string
	Path    string
	Extra   map[string]string
	Error   string
}

// Result accumulates the outcome of an environment verification run.
// Stages append to it as they go; a failing stage never resets what
// earlier stages recorded. The mutators are serialized so the parallel
// variant can share one Result across workers.
type Result struct {
	Status          bool
	Details         map[string]Detail
	Missing         []string
	Recommendations []string

	mu sync.Mutex
}

// NewResult returns an empty passing result.
func NewResult() *Result {
	return &Result{
		Status:  true,
		Details: map[string]Detail{},
	}
}

// SetDetail records probe findings for a component. Each stage writes only
// its own component keys.
func (r *Result) SetDetail(component string, d Detail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Details[component] = d
}

// Fail marks the run failed and appends a missing component plus its
// remediation hint. An empty recommendation appends nothing.
func (r *Result) Fail(missing, recommendation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = false
	r.Missing = append(r.Missing, missing)
	if recommendation != "" {
		r.Recommendations = append(r.Recommendations, recommendation)
	}
}

// FailStage records a probe error under the stage's detail key and marks
// the run failed. A raising probe is a failed check, not a crash; sibling
// stages still run. Callers pair it with Fail so the missing list carries
// a remediation hint for the broken stage.
func (r *Result) FailStage(component string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = false
	d := r.Details[component]
	d.Error = err.Error()
	r.Details[component] = d
}

// Report writes an itemized human-readable report.
func (r *Result) Report(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status {
		fmt.Fprintln(w, "environment check: OK")
	} else {
		fmt.Fprintln(w, "environment check: FAILED")
	}

	if len(r.Missing) > 0 {
		fmt.Fprintln(w, "\nmissing components:")
		for _, m := range r.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "\nrecommended actions:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}

	if len(r.Details) > 0 {
		fmt.Fprintln(w, "\ndetails:")
		for component, d := range r.Details {
			fmt.Fprintf(w, "  %s:", component)
			if d.Version != "" {
				fmt.Fprintf(w, " version=%s", d.Version)
			}
			if d.Path != "" {
				fmt.Fprintf(w, " path=%s", d.Path)
			}
			for k, v := range d.Extra {
				fmt.Fprintf(w, " %s=%s", k, v)
			}
			if d.Error != "" {
				fmt.Fprintf(w, " error=%q", d.Error)
			}
			fmt.Fprintln(w)
		}
	}
}
