// Package ratelimit throttles MCP tool calls per tool name.
package ratelimit

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is matched by every *Error.
var ErrRateLimited = errors.New("rate limit exceeded")

// Error reports a rejected call and how long until the next token.
type Error struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Millisecond))
}

func (e *Error) Unwrap() error { return ErrRateLimited }

// Limit is a token bucket: PerMinute tokens per minute, at most Burst held.
type Limit struct {
	PerMinute float64 `json:"per_minute" yaml:"per_minute"`
	Burst     int     `json:"burst" yaml:"burst"`
}

// Validate rejects negative rates and empty buckets.
func (l Limit) Validate() error {
	if l.PerMinute < 0 {
		return fmt.Errorf("per_minute must be non-negative, got %g", l.PerMinute)
	}
	if l.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", l.Burst)
	}
	return nil
}

// DefaultLimits are generous for interactive use. Generation is the only
// expensive tool.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"sweep_generate":   {PerMinute: 6, Burst: 2},
		"sweep_export":     {PerMinute: 10, Burst: 3},
		"sweep_inspect":    {PerMinute: 60, Burst: 10},
		"sweep_evaluators": {PerMinute: 60, Burst: 10},
	}
}

// ToolLimiters holds one limiter per tool. Tools without a limit are never
// throttled. It is safe for concurrent use.
type ToolLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// New builds limiters for limits.
func New(limits map[string]Limit) *ToolLimiters {
	t := &ToolLimiters{
		limiters: make(map[string]*rate.Limiter, len(limits)),
		now:      time.Now,
	}
	for tool, l := range limits {
		t.limiters[tool] = rate.NewLimiter(rate.Limit(l.PerMinute/60), l.Burst)
	}
	return t
}

// Tools lists the throttled tools in name order.
func (t *ToolLimiters) Tools() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tools := make([]string, 0, len(t.limiters))
	for tool := range t.limiters {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

// Check takes one token for tool, or returns an *Error when none is left.
func (t *ToolLimiters) Check(tool string) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	lim, ok := t.limiters[tool]
	now := t.now()
	t.mu.Unlock()
	if !ok {
		return nil
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Error{Tool: tool}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Error{Tool: tool, RetryAfter: delay}
	}
	return nil
}
