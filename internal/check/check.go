// Package check validates the tensors of safetensors files against manifest
// rules.
package check

import (
	"context"
	"fmt"
	"maps"

	"github.com/born-ml/tensortypes/internal/config"
	"github.com/born-ml/tensortypes/internal/manifest"
	"github.com/born-ml/tensortypes/internal/safetensors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status of one checked tensor.
type Status string

// Statuses.
const (
	StatusOK        Status = "ok"
	StatusMismatch  Status = "mismatch"
	StatusUnmatched Status = "unmatched"
	StatusError     Status = "error"
)

// Result is the outcome for one tensor, or for a whole file when the file
// could not be read (Tensor is then empty).
type Result struct {
	File     string `json:"file"`
	Tensor   string `json:"tensor,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   Status `json:"status"`
	Shape    []int  `json:"shape,omitempty"`
	DType    string `json:"dtype,omitempty"`
	Expected string `json:"expected,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Checker checks files against one set of rules and parameter values.
// It is safe for concurrent use.
type Checker struct {
	rules  manifest.Rules
	values config.Values
	jobs   int
	logger *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithJobs sets how many files are checked at once.
func WithJobs(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.jobs = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Checker. values is copied, so later changes by the caller
// do not affect checks.
func New(rules manifest.Rules, values config.Values, opts ...Option) *Checker {
	c := &Checker{
		rules:  rules,
		values: maps.Clone(values),
		jobs:   1,
		logger: zap.NewNop(),
	}
	if c.values == nil {
		c.values = config.Values{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check checks every file and returns the results in file order, tensors
// sorted by name within a file. Unreadable files produce an error result
// rather than failing the run. Only context cancellation returns an error.
func (c *Checker) Check(ctx context.Context, files []string) ([]Result, error) {
	perFile := make([][]Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perFile[i] = c.CheckFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Result
	for _, rs := range perFile {
		out = append(out, rs...)
	}
	return out, nil
}

// CheckFile checks the tensors of one file.
func (c *Checker) CheckFile(file string) []Result {
	r, err := safetensors.Open(file)
	if err != nil {
		c.logger.Warn("Cannot read file", zap.String("file", file), zap.Error(err))
		return []Result{{File: file, Status: StatusError, Message: err.Error()}}
	}
	defer func() {
		_ = r.Close()
	}()

	entries := r.Entries()
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		res := c.checkEntry(file, e)
		results = append(results, res)
		c.log(res)
	}

	s := Summarize(results)
	c.logger.Info("Checked file",
		zap.String("file", file),
		zap.Int("tensors", len(results)),
		zap.Int("ok", s.OK),
		zap.Int("mismatch", s.Mismatch),
		zap.Int("unmatched", s.Unmatched),
		zap.Int("errors", s.Errors))
	return results
}

func (c *Checker) checkEntry(file string, e safetensors.Entry) Result {
	res := Result{
		File:   file,
		Tensor: e.Name(),
		Shape:  e.Shape(),
		DType:  e.Format(),
		Bytes:  e.Size(),
	}
	if e.Supported() {
		res.DType = e.DType().String()
	}

	rule, ok := c.rules.Match(e.Name())
	if !ok {
		res.Status = StatusUnmatched
		return res
	}
	res.Type = rule.Spec.Name()
	res.Expected = fmt.Sprintf("%v %s", rule.Spec.Resolve(&c.values), rule.Spec.Kind())

	if !e.Supported() {
		res.Status = StatusError
		res.Message = fmt.Sprintf("%s: %s", safetensors.ErrUnsupportedDType, e.Format())
		return res
	}
	if err := rule.Spec.Check(e, &c.values); err != nil {
		res.Status = StatusMismatch
		res.Message = err.Error()
		return res
	}
	res.Status = StatusOK
	return res
}

func (c *Checker) log(res Result) {
	fields := []zap.Field{
		zap.String("file", res.File),
		zap.String("tensor", res.Tensor),
		zap.String("type", res.Type),
		zap.Ints("shape", res.Shape),
	}
	switch res.Status {
	case StatusMismatch, StatusError:
		c.logger.Warn("Tensor failed check", append(fields, zap.String("reason", res.Message))...)
	default:
		c.logger.Debug("Tensor checked", append(fields, zap.String("status", string(res.Status)))...)
	}
}

// Summary counts results by status.
type Summary struct {
	Files     int `json:"files"`
	Tensors   int `json:"tensors"`
	OK        int `json:"ok"`
	Mismatch  int `json:"mismatch"`
	Unmatched int `json:"unmatched"`
	Errors    int `json:"errors"`
}

// Summarize counts results. File-level error results count as errors but not
// as tensors; Files counts files with at least one result.
func Summarize(results []Result) Summary {
	var s Summary
	files := make(map[string]bool)
	for _, r := range results {
		files[r.File] = true
		if r.Tensor != "" {
			s.Tensors++
		}
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusMismatch:
			s.Mismatch++
		case StatusUnmatched:
			s.Unmatched++
		case StatusError:
			s.Errors++
		}
	}
	s.Files = len(files)
	return s
}

// Failed reports whether any tensor mismatched or errored. With strict set,
// unmatched tensors fail too.
func (s Summary) Failed(strict bool) bool {
	if s.Mismatch > 0 || s.Errors > 0 {
		return true
	}
	return strict && s.Unmatched > 0
}
