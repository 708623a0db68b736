package judge

import (
	"context"
	"errors"
	"fmt"

	"habit_hero/internal/app/sandbox"
	"habit_hero/internal/domain/model"
)

var ErrNoTestCases = errors.New("no test cases")

// Verdict describes the outcome of a run. FailedCase is the zero-based index of
// the first case that did not pass, or -1 when every case passed.
type Verdict struct {
	Passed     bool
	FailedCase int
	Cause      error
}

// Verifier runs the cases in order and stops at the first failure. Every case
// shares ctx, so a deadline on ctx bounds the whole run.
type Verifier struct {
	executor sandbox.Executor
}

func NewVerifier(executor sandbox.Executor) *Verifier {
	return &Verifier{executor: executor}
}

func (v *Verifier) Verify(ctx context.Context, source string, cases []model.TestCase) (Verdict, error) {
	if len(cases) == 0 {
		return Verdict{}, ErrNoTestCases
	}

	name, err := sandbox.FunctionName(source)
	if err != nil {
		return Verdict{Passed: false, FailedCase: 0, Cause: err}, nil
	}

	for i, tc := range cases {
		got, err := v.executor.Invoke(ctx, source, name, tc.Input)
		if err != nil {
			if !scriptFailure(err) {
				return Verdict{}, fmt.Errorf("judge: test case %d: %w", i+1, err)
			}
			return Verdict{Passed: false, FailedCase: i, Cause: err}, nil
		}
		if !StrictEqual(got, tc.Expected) {
			return Verdict{
				Passed:     false,
				FailedCase: i,
				Cause:      fmt.Errorf("test case %d: expected %v, got %v", i+1, tc.Expected, got),
			}, nil
		}
	}
	return Verdict{Passed: true, FailedCase: -1}, nil
}

// scriptFailure separates errors caused by the submitted code from failures of
// the sandbox itself, which must not count against the author.
func scriptFailure(err error) bool {
	return errors.Is(err, sandbox.ErrExecution) ||
		errors.Is(err, sandbox.ErrTimeout) ||
		errors.Is(err, sandbox.ErrNoFunctionFound)
}
