package pipeline

import (
	"context"

	"github.com/electwix/db-catalogue/internal/codegen"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// Hooks provides extension points in the pipeline execution.
// Every hook may return an error to abort the run.
type Hooks struct {
	// BeforeCompile receives the resolved schema paths.
	BeforeCompile func(ctx context.Context, schemaPaths []string) error

	// AfterCompile receives every accepted model once all files compiled cleanly.
	AfterCompile func(ctx context.Context, models []model.Model) error

	// AfterGenerate receives the generated files, already joined with the
	// output directory.
	AfterGenerate func(ctx context.Context, files []codegen.File) error

	// BeforeWrite is skipped on dry runs.
	BeforeWrite func(ctx context.Context, files []codegen.File) error

	// AfterRun is the final hook, called even if earlier stages failed.
	AfterRun func(ctx context.Context, summary Summary) error
}

// Chain combines two Hooks, calling h's hooks first, then other's hooks.
// If a hook in h returns an error, other's hook is not called.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		BeforeCompile: chainHook(h.BeforeCompile, other.BeforeCompile),
		AfterCompile:  chainHook(h.AfterCompile, other.AfterCompile),
		AfterGenerate: chainHook(h.AfterGenerate, other.AfterGenerate),
		BeforeWrite:   chainHook(h.BeforeWrite, other.BeforeWrite),
		AfterRun:      chainHook(h.AfterRun, other.AfterRun),
	}
}

func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

func callHook[T any](ctx context.Context, hook func(context.Context, T) error, arg T) error {
	if hook == nil {
		return nil
	}
	return hook(ctx, arg)
}
