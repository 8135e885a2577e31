// Package compiler runs schema source through the tokenizer, parser and
// semantic checker and reports the first stage that failed.
package compiler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/electwix/db-catalogue/internal/cache"
	"github.com/electwix/db-catalogue/internal/logging"
	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
	"github.com/electwix/db-catalogue/internal/schema/model"
	"github.com/electwix/db-catalogue/internal/schema/parser"
	"github.com/electwix/db-catalogue/internal/schema/semantic"
)

// Error reports the diagnostics of the stage that rejected the source.
type Error struct {
	Stage       diagnostic.Stage
	Diagnostics []diagnostic.Diagnostic
	// Models holds what the failing stage had produced: the models parsed
	// before a syntactic error, or every model when the semantic checker
	// rejected them.
	Models []model.Model
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("%s error: %s", strings.ToLower(e.Stage.String()), e.Diagnostics[0].Text())
	}
	return fmt.Sprintf("%s error: %d diagnostics, first: %s",
		strings.ToLower(e.Stage.String()), len(e.Diagnostics), e.Diagnostics[0].Text())
}

// Messages returns the literal diagnostic messages.
func (e *Error) Messages() []string {
	return diagnostic.Messages(e.Diagnostics)
}

func (e *Error) clone() *Error {
	return &Error{
		Stage:       e.Stage,
		Diagnostics: append([]diagnostic.Diagnostic(nil), e.Diagnostics...),
		Models:      model.CloneModels(e.Models),
	}
}

// Result is one memoized compilation.
type Result struct {
	Models []model.Model
	Err    *Error
}

// Options configures a Compiler.
type Options struct {
	// Strict enables the primary-key shape checks of the semantic stage.
	Strict bool
	Logger logging.Logger
	// Cache memoizes results by source content. Nil disables it.
	Cache cache.Cache[Result]
	// CacheTTL defaults to DefaultCacheTTL.
	CacheTTL time.Duration
}

// DefaultCacheTTL bounds how long a memoized result is reused.
const DefaultCacheTTL = 10 * time.Minute

// Compiler turns schema source into validated models. It holds no per-call
// state, so one Compiler may serve concurrent callers.
type Compiler struct {
	checker  semantic.Checker
	logger   logging.Logger
	cache    cache.Cache[Result]
	cacheTTL time.Duration
}

// New returns a Compiler configured by opts.
func New(opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Compiler{
		checker:  semantic.Checker{Strict: opts.Strict},
		logger:   logger,
		cache:    opts.Cache,
		cacheTTL: ttl,
	}
}

// Compile is shorthand for New(Options{}).Compile(src).
func Compile(src string) ([]model.Model, error) {
	return New(Options{}).Compile(src)
}

// Compile runs every stage over src. On success it returns the models in
// declaration order. Otherwise the error is a *Error naming the first stage
// with diagnostics: lexical problems win over syntactic ones, which win over
// semantic ones.
func (c *Compiler) Compile(src string) ([]model.Model, error) {
	if c.cache == nil {
		return c.compile(src)
	}
	key := c.cacheKey(src)
	if res, ok := c.cache.Get(key); ok {
		c.logger.Debug("schema cache hit", "key", key)
		if res.Err != nil {
			return nil, res.Err.clone()
		}
		return model.CloneModels(res.Models), nil
	}

	models, err := c.compile(src)
	var compileErr *Error
	switch {
	case err == nil:
		c.cache.Set(key, Result{Models: model.CloneModels(models)}, c.cacheTTL)
	case errors.As(err, &compileErr):
		c.cache.Set(key, Result{Err: compileErr.clone()}, c.cacheTTL)
	}
	return models, err
}

// cacheKey separates strict and default results for the same source.
func (c *Compiler) cacheKey(src string) string {
	prefix := "default"
	if c.checker.Strict {
		prefix = "strict"
	}
	return cache.ComputeKeyWithPrefix(prefix, []byte(src))
}

func (c *Compiler) compile(src string) ([]model.Model, error) {
	start := time.Now()

	parsed := parser.New(src).ParseModels()
	c.logger.Debug("schema parsed",
		"bytes", len(src),
		"models", len(parsed.Models),
		"lexical_diagnostics", len(parsed.Lexical),
		"syntactic_diagnostics", len(parsed.Diagnostics),
	)
	if len(parsed.Lexical) > 0 {
		return nil, c.fail(diagnostic.StageLexical, parsed.Lexical, nil)
	}
	if parsed.Failed() {
		return nil, c.fail(diagnostic.StageSyntactic, parsed.Diagnostics, parsed.Models)
	}

	if diags := c.checker.Check(parsed.Models); len(diags) > 0 {
		return nil, c.fail(diagnostic.StageSemantic, diags, parsed.Models)
	}

	c.logger.Debug("schema compiled", "models", len(parsed.Models), "duration", time.Since(start))
	return parsed.Models, nil
}

func (c *Compiler) fail(stage diagnostic.Stage, diags []diagnostic.Diagnostic, models []model.Model) *Error {
	c.logger.Debug("schema rejected", "stage", stage.String(), "diagnostics", len(diags))
	return &Error{Stage: stage, Diagnostics: diags, Models: models}
}
