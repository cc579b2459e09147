package middleware

import (
	"context"
	"net/http"

	eduAuth "github.com/MrEthical07/eduAuth"
)

// Engine is the subset of *eduAuth.Engine the gate needs.
type Engine interface {
	Authenticate(ctx context.Context, token string) (*eduAuth.Identity, error)
	TryConsume(ctx context.Context, policy eduAuth.Policy, parts ...string) eduAuth.RateDecision
}

// Result is the outcome of one stage.
type Result struct {
	ctx     context.Context
	halt    bool
	status  int
	body    any
	headers http.Header
}

// Continue passes ctx to the next stage.
func Continue(ctx context.Context) Result {
	return Result{ctx: ctx}
}

// Halt ends the request with status, a JSON body and optional headers.
func Halt(status int, body any, headers http.Header) Result {
	return Result{halt: true, status: status, body: body, headers: headers}
}

// Halted reports whether the result stops the chain.
func (r Result) Halted() bool {
	return r.halt
}

// Stage is one step of the gate.
type Stage func(engine Engine, r *http.Request) Result

// Gate runs stages in order and calls next only if none halted.
func Gate(engine Engine, stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, stage := range stages {
				res := stage(engine, r)
				if res.halt {
					for k, values := range res.headers {
						for _, v := range values {
							w.Header().Add(k, v)
						}
					}
					WriteJSON(w, res.status, res.body)
					return
				}
				if res.ctx != nil && res.ctx != r.Context() {
					r = r.WithContext(res.ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
