// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Elephant333/emojify/internal/model"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = model.ProviderOpenAI
	ProviderOllama = model.ProviderOllama
	ProviderAuto   = "auto"
)

// Default pacing and breaker settings.
const (
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 4
	DefaultBreakerFailures   = 5
	DefaultBreakerCooldown   = 30 * time.Second
)

var (
	// ErrUnknownProvider is returned by New for an unrecognized provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoRoute is returned by New when the provider needs a client that
	// was not supplied.
	ErrNoRoute = errors.New("no backend configured for provider")
)

// Completer is the call a route makes. Both cloud.Client and ollama.Client
// satisfy it.
type Completer interface {
	Complete(ctx context.Context, messages []model.Message, modelName string) (string, error)
}

// CallObserver is told about every route attempt.
type CallObserver interface {
	BackendCall(ctx context.Context, provider string, err error, elapsed time.Duration)
}

// Options configures a Router. Zero values take the defaults above.
type Options struct {
	// Provider is ProviderOpenAI, ProviderOllama or ProviderAuto.
	Provider string

	// LocalModel replaces cloud model names on the ollama route.
	LocalModel string

	RequestsPerSecond float64
	Burst             int

	// BreakerFailures is the number of consecutive failures that opens a
	// route's breaker; BreakerCooldown is how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	Observer CallObserver
}

// route is one provider with its own limiter and breaker.
type route struct {
	name    string
	client  Completer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Router implements engine.Backend over one or more routes.
type Router struct {
	routes     []*route
	localModel string
	observer   CallObserver
	tracer     trace.Tracer

	mu   sync.Mutex
	last string
}

// New builds a router. cloud or local may be a nil interface when the
// provider does not use them; "auto" skips a missing or unconfigured client.
func New(opts Options, cloud, local Completer) (*Router, error) {
	if opts.Provider == "" {
		opts.Provider = ProviderAuto
	}
	if opts.LocalModel == "" {
		opts.LocalModel = model.DefaultLocalModel
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultBreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = DefaultBreakerCooldown
	}

	r := &Router{
		localModel: opts.LocalModel,
		observer:   opts.Observer,
		tracer:     otel.Tracer("emojify/router"),
	}

	var names []string
	switch opts.Provider {
	case ProviderOpenAI:
		names = []string{ProviderOpenAI}
	case ProviderOllama:
		names = []string{ProviderOllama}
	case ProviderAuto:
		names = []string{ProviderOpenAI, ProviderOllama}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}

	for _, name := range names {
		client := cloud
		if name == ProviderOllama {
			client = local
		}
		if unusable(client) {
			if opts.Provider == ProviderAuto {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, name)
		}
		r.routes = append(r.routes, newRoute(name, client, opts))
	}
	if len(r.routes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, opts.Provider)
	}
	return r, nil
}

func newRoute(name string, client Completer, opts Options) *route {
	failures := opts.BreakerFailures
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the backend's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("BREAKER_STATE | route=%s from=%s to=%s", name, from, to)
		},
	}
	return &route{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// unusable reports whether c is missing or reports itself unconfigured,
// like a cloud client without an API key.
func unusable(c Completer) bool {
	if c == nil {
		return true
	}
	if v, ok := c.(interface{ IsConfigured() bool }); ok {
		return !v.IsConfigured()
	}
	return false
}

// Providers returns the route names in the order they are tried.
func (r *Router) Providers() []string {
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.name
	}
	return names
}

// LastProvider returns the route that served the most recent successful call.
func (r *Router) LastProvider() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// BreakerState returns the breaker state of the named route, or "" if there
// is no such route.
func (r *Router) BreakerState(name string) string {
	for _, rt := range r.routes {
		if rt.name == name {
			return rt.breaker.State().String()
		}
	}
	return ""
}

// Complete tries each route in order and returns the first success. It stops
// early when ctx is done.
func (r *Router) Complete(ctx context.Context, messages []model.Message, modelName string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "router.complete")
	defer span.End()
	span.SetAttributes(attribute.String("model", modelName), attribute.Int("messages", len(messages)))

	var lastErr error
	for _, rt := range r.routes {
		name := r.modelFor(rt, modelName)
		text, err := r.call(ctx, rt, messages, name)
		if err == nil {
			r.mu.Lock()
			r.last = rt.name
			r.mu.Unlock()
			span.SetAttributes(attribute.String("provider", rt.name))
			span.SetStatus(codes.Ok, "")
			return text, nil
		}

		lastErr = err
		span.AddEvent("route_failed", trace.WithAttributes(
			attribute.String("provider", rt.name),
			attribute.String("error", err.Error()),
		))
		if ctx.Err() != nil {
			break
		}
		log.Printf("ROUTE_FAILED | provider=%s model=%s err=%v", rt.name, name, err)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all routes failed")
	return "", lastErr
}

// call runs one route attempt behind its limiter and breaker.
func (r *Router) call(ctx context.Context, rt *route, messages []model.Message, modelName string) (string, error) {
	start := time.Now()
	err := rt.limiter.Wait(ctx)
	var text string
	if err == nil {
		var result interface{}
		result, err = rt.breaker.Execute(func() (interface{}, error) {
			return rt.client.Complete(ctx, messages, modelName)
		})
		if err == nil {
			text = result.(string)
		} else if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%s: %w", rt.name, err)
		}
	}
	if r.observer != nil {
		r.observer.BackendCall(ctx, rt.name, err, time.Since(start))
	}
	return text, err
}

// modelFor returns the model name to send on rt. Cloud model names mean
// nothing to a local server, so the ollama route swaps them for LocalModel.
func (r *Router) modelFor(rt *route, modelName string) string {
	if rt.name != ProviderOllama {
		return modelName
	}
	if modelName == "" {
		return r.localModel
	}
	info, ok := model.GetModelInfo(modelName)
	if !ok || info.Provider == model.ProviderOllama {
		// Unknown names are taken as local tags like "phi3:mini".
		return modelName
	}
	return r.localModel
}
