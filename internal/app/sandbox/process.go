package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RunnerEnv marks a process started by ProcessExecutor. Binaries that embed the
// executor check IsRunnerProcess first thing in main and hand over to ServeRunner.
const RunnerEnv = "HABIT_HERO_SANDBOX_RUNNER"

const (
	killGrace       = time.Second
	maxRunnerStderr = 64 << 10
)

// ProcessExecutor runs every invocation in a fresh child process with a capped
// address space, so a script that exhausts memory only takes its runner down.
type ProcessExecutor struct {
	path         string
	timeout      time.Duration
	maxCallStack int
	memoryLimit  int64
	slots        chan struct{}
}

// NewProcessExecutor re-executes path as the runner. memoryLimit is the number
// of bytes the runner may map beyond what it holds at startup; zero disables
// the cap. maxConcurrent bounds the number of live runners.
func NewProcessExecutor(path string, timeout time.Duration, maxCallStack int, memoryLimit int64, maxConcurrent int) *ProcessExecutor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ProcessExecutor{
		path:         path,
		timeout:      timeout,
		maxCallStack: maxCallStack,
		memoryLimit:  memoryLimit,
		slots:        make(chan struct{}, maxConcurrent),
	}
}

type runnerRequest struct {
	Source       string `json:"source"`
	Function     string `json:"function"`
	Args         []any  `json:"args"`
	TimeoutMS    int64  `json:"timeout_ms"`
	MaxCallStack int    `json:"max_call_stack"`
	MemoryLimit  int64  `json:"memory_limit"`
}

type runnerResponse struct {
	Kind  string     `json:"kind,omitempty"`
	Error string     `json:"error,omitempty"`
	Value *wireValue `json:"value,omitempty"`
}

const (
	kindNoFunction = "no_function"
	kindExecution  = "execution"
	kindTimeout    = "timeout"
)

func (e *ProcessExecutor) Invoke(ctx context.Context, source, functionName string, args []any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	limit := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); limit <= 0 || left < limit {
			limit = left
		}
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, context.DeadlineExceeded)
	}

	req := runnerRequest{
		Source:       source,
		Function:     functionName,
		Args:         args,
		MaxCallStack: e.maxCallStack,
		MemoryLimit:  e.memoryLimit,
	}
	if limit > 0 {
		req.TimeoutMS = max(limit.Milliseconds(), 1)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox: encode runner request: %w", err)
	}

	killCtx := ctx
	if limit > 0 {
		var cancel context.CancelFunc
		killCtx, cancel = context.WithTimeout(ctx, limit+killGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(killCtx, e.path)
	// The runner inherits nothing from the server's environment.
	cmd.Env = []string{RunnerEnv + "=1"}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	stderr := &cappedBuffer{max: maxRunnerStderr}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case killCtx.Err() != nil:
			return nil, fmt.Errorf("%w: runner killed after %s", ErrTimeout, limit+killGrace)
		case strings.Contains(stderr.String(), "out of memory"):
			return nil, fmt.Errorf("%w: memory limit exceeded", ErrExecution)
		case errors.As(err, &exitErr):
			return nil, fmt.Errorf("%w: runner exited: %v", ErrExecution, exitErr)
		}
		return nil, fmt.Errorf("sandbox: start runner: %w", err)
	}

	var resp runnerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: unreadable runner reply: %v", ErrExecution, err)
	}
	return resp.result()
}

func (r runnerResponse) result() (any, error) {
	switch r.Kind {
	case "":
		if r.Value == nil {
			return nil, fmt.Errorf("%w: runner reply has no value", ErrExecution)
		}
		return r.Value.decode()
	case kindNoFunction:
		return nil, rebuildError(ErrNoFunctionFound, r.Error)
	case kindTimeout:
		return nil, rebuildError(ErrTimeout, r.Error)
	default:
		return nil, rebuildError(ErrExecution, r.Error)
	}
}

// rebuildError wraps sentinel while keeping the runner's message text.
func rebuildError(sentinel error, msg string) error {
	rest := strings.TrimPrefix(msg, sentinel.Error())
	if rest == msg && msg != "" {
		rest = ": " + msg
	}
	return fmt.Errorf("%w%s", sentinel, rest)
}

// IsRunnerProcess reports whether this process was started by ProcessExecutor.
func IsRunnerProcess() bool {
	return os.Getenv(RunnerEnv) == "1"
}

// ServeRunner answers a single runner request read from in and returns the
// process exit code. Script failures are replies, not exit codes.
func ServeRunner(in io.Reader, out io.Writer) int {
	var req runnerRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox runner: decode request: %v\n", err)
		return 1
	}
	if req.MemoryLimit > 0 {
		if err := limitMemory(req.MemoryLimit); err != nil {
			fmt.Fprintf(os.Stderr, "sandbox runner: %v\n", err)
			return 1
		}
	}

	ex := NewGojaExecutor(time.Duration(req.TimeoutMS)*time.Millisecond, req.MaxCallStack)
	value, err := ex.Invoke(context.Background(), req.Source, req.Function, req.Args)

	var resp runnerResponse
	switch {
	case err == nil:
		wv := encodeValue(value)
		resp.Value = &wv
	case errors.Is(err, ErrNoFunctionFound):
		resp.Kind, resp.Error = kindNoFunction, err.Error()
	case errors.Is(err, ErrTimeout):
		resp.Kind, resp.Error = kindTimeout, err.Error()
	default:
		resp.Kind, resp.Error = kindExecution, err.Error()
	}
	if err := json.NewEncoder(out).Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox runner: write reply: %v\n", err)
		return 1
	}
	return 0
}

// cappedBuffer keeps the first max bytes written and discards the rest.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		c.buf.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return c.buf.String() }
