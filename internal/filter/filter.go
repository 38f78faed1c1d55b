// Package filter runs admission checks over generation requests before any
// third-party provider is called.
package filter

import "context"

// Action represents the filter decision.
type Action string

const (
	ActionPass  Action = "pass"
	ActionFlag  Action = "flag"
	ActionBlock Action = "block"
)

// Source says what Request.Texts hold.
type Source int

const (
	// SourceProductText is catalog copy embedded in a text-provider call.
	SourceProductText Source = iota
	// SourcePrompts are image prompts. Each one is validated again on its own
	// by the generation pipeline, where a rejection is that prompt's error.
	SourcePrompts
)

// Request is what the filters see of an incoming generation call.
type Request struct {
	RequestID string
	Route     string
	Provider  string
	ClientID  string
	Client    string
	// Texts holds every caller-supplied string that would be forwarded to a provider.
	Texts       []string
	Source      Source
	PromptCount int
}

// Result is returned by each filter.
type Result struct {
	Action     Action
	FilterName string
	Message    string
	Detections int
	Score      float64
}

// Filter is the interface all admission filters implement.
type Filter interface {
	Name() string
	Enabled() bool
	ScanRequest(ctx context.Context, req *Request) Result
}

// Chain runs filters in order, stopping on the first Block.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Run executes all enabled filters in order. Returns all results and a pointer
// to the first blocking result (nil if no filter blocked).
func (c *Chain) Run(ctx context.Context, req *Request) ([]Result, *Result) {
	var results []Result
	for _, f := range c.filters {
		if !f.Enabled() {
			continue
		}
		r := f.ScanRequest(ctx, req)
		results = append(results, r)
		if r.Action == ActionBlock {
			return results, &r
		}
	}
	return results, nil
}
