// Package executor runs external commands with output capture, working
// directory and environment control, and optional retry. It backs the git
// and gh invocations that cannot be performed in-process.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Result holds the captured output and exit status of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external programs. Implementations other than Local are
// used in tests to substitute canned results.
type Runner interface {
	// Run executes program with args and returns the captured result.
	// A non-zero exit status is reported as an error alongside the Result,
	// which still carries whatever output the command produced.
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures a single command execution.
type Options struct {
	// WorkingDir is the directory the command runs in.
	// Empty means the current process working directory.
	WorkingDir string

	// Env holds variables appended to the current process environment.
	Env map[string]string

	// Stdout and Stderr, when set, receive a live copy of the command's
	// output in addition to capture.
	Stdout io.Writer
	Stderr io.Writer

	// MaxRetries is the number of additional attempts after a failure.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// RetryOn decides whether a failure is worth retrying.
	// Nil retries every failure when MaxRetries > 0.
	RetryOn func(error) bool
}

// Option mutates Options.
type Option func(*Options)

// WithWorkingDir sets the directory the command runs in.
func WithWorkingDir(dir string) Option {
	return func(o *Options) { o.WorkingDir = dir }
}

// WithEnv appends environment variables to the command environment.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar appends a single environment variable to the command environment.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithRetry configures retry behavior for transient failures.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(o *Options) {
		o.MaxRetries = maxRetries
		o.RetryDelay = delay
	}
}

// WithRetryCondition sets a predicate deciding which failures are retried.
func WithRetryCondition(fn func(error) bool) Option {
	return func(o *Options) { o.RetryOn = fn }
}

// WithStdout mirrors the command's stdout to w while still capturing it.
func WithStdout(w io.Writer) Option {
	return func(o *Options) { o.Stdout = w }
}

// WithStderr mirrors the command's stderr to w while still capturing it.
func WithStderr(w io.Writer) Option {
	return func(o *Options) { o.Stderr = w }
}

// Local is a Runner that executes commands on the local machine via os/exec.
// Base options supplied at construction apply to every Run call and may be
// overridden per call.
type Local struct {
	base []Option
}

// NewLocal returns a Local runner with the given base options.
func NewLocal(base ...Option) *Local {
	return &Local{base: base}
}

// Run implements Runner.
func (l *Local) Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := &Options{RetryDelay: time.Second}
	for _, opt := range l.base {
		opt(options)
	}
	for _, opt := range opts {
		opt(options)
	}

	attempts := options.MaxRetries + 1
	var result *Result
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = runOnce(ctx, program, args, options)
		if err == nil || attempt == attempts {
			return result, err
		}

		if options.RetryOn != nil && !options.RetryOn(err) {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("cancelled while retrying %s: %w", program, ctx.Err())
		case <-time.After(options.RetryDelay):
		}
	}

	return result, err
}

func runOnce(ctx context.Context, program string, args []string, options *Options) (*Result, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = options.WorkingDir

	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if options.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, options.Stdout)
	}
	if options.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, options.Stderr)
	}

	runErr := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(runErr),
	}

	if runErr != nil {
		detail := strings.TrimSpace(result.Stderr)
		if detail != "" {
			return result, fmt.Errorf("%s %s: %s: %w", program, strings.Join(args, " "), detail, runErr)
		}
		return result, fmt.Errorf("%s %s: %w", program, strings.Join(args, " "), runErr)
	}
	return result, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		return -1
	}
}
