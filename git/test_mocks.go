package git

import (
	"context"

	"github.com/CodeEditorLand/DependencyLandMaintain/executor"
)

// recordedCall captures a single invocation of the fake runner
type recordedCall struct {
	Program string
	Args    []string
}

// fakeRunner is a test double for executor.Runner that records calls
// and replays canned results
type fakeRunner struct {
	calls []recordedCall

	// run, when set, decides the outcome per call. Otherwise result
	// and err are returned verbatim.
	run    func(program string, args []string) (*executor.Result, error)
	result *executor.Result
	err    error
}

func (f *fakeRunner) Run(
	_ context.Context,
	program string,
	args []string,
	_ ...executor.Option,
) (*executor.Result, error) {
	f.calls = append(f.calls, recordedCall{Program: program, Args: args})

	if f.run != nil {
		return f.run(program, args)
	}
	if f.result != nil {
		return f.result, f.err
	}

	return &executor.Result{}, f.err
}

// lastCall returns the most recent recorded call, or nil when none happened
func (f *fakeRunner) lastCall() *recordedCall {
	if len(f.calls) == 0 {
		return nil
	}

	return &f.calls[len(f.calls)-1]
}
