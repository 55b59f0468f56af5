// Package resolver locates the kernel async key-state array on the target machine.
//
// Resolution runs an ordered table of strategies. Each strategy has a predicate on
// the kernel generation and an extractor that either finds the address, misses (the
// next strategy runs) or aborts the whole resolution. Extractors never panic past
// the table; any panic from the transport counts as a miss.
package resolver

import (
	"fmt"

	"gokbd/process"
	"gokbd/search"
	"gokbd/winver"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	SourceSymbol    = "symbol"
	SourceSignature = "signature"
)

// Symbol is a resolved kernel address and the strategy that produced it.
type Symbol struct {
	Address process.ProcessMemoryAddress
	Source  string
}

// Valid reports whether the address is a plausible kernel pointer.
func (s Symbol) Valid() bool {
	return process.IsKernelPointer(s.Address)
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s (%s)", s.Address.ToString(), s.Source)
}

// Result is a successful resolution.
type Result struct {
	Symbol     Symbol
	Context    process.ProcessContext // kernel-memory context for reading Symbol
	Build      int
	Generation winver.Generation
}

// Outcome of a single strategy.
type Outcome int

const (
	Miss Outcome = iota
	Found
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Abort:
		return "abort"
	default:
		return "miss"
	}
}

// Strategy is one entry of the resolution table.
type Strategy struct {
	Name    string
	Applies func(gen winver.Generation) bool
	Extract func(r *Resolver, kernel process.ProcessContext) (Symbol, Outcome)
}

// DefaultStrategies: debug symbols first on legacy kernels, signature scan everywhere.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:    SourceSymbol,
			Applies: func(gen winver.Generation) bool { return gen == winver.Legacy },
			Extract: (*Resolver).extractSymbol,
		},
		{
			Name:    SourceSignature,
			Applies: func(gen winver.Generation) bool { return gen == winver.Legacy || gen == winver.Modern },
			Extract: (*Resolver).extractSignature,
		},
	}
}

// Resolver holds everything a resolution needs. It keeps no state between runs.
type Resolver struct {
	transport  process.Transport
	builds     winver.BuildSource
	scanner    *search.Scanner
	cfg        Config
	strategies []Strategy
	log        *logger.Logger
}

// Option is a function that configures a Resolver
type Option func(*Resolver)

func WithConfig(cfg Config) Option {
	return func(r *Resolver) {
		r.cfg = cfg
	}
}

func WithBuildSource(src winver.BuildSource) Option {
	return func(r *Resolver) {
		r.builds = src
	}
}

func WithScanner(s *search.Scanner) Option {
	return func(r *Resolver) {
		r.scanner = s
	}
}

func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

func New(transport process.Transport, options ...Option) *Resolver {
	r := &Resolver{
		transport:  transport,
		builds:     winver.Chain(winver.Registry(), winver.HostInfo()),
		cfg:        DefaultConfig(),
		strategies: DefaultStrategies(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "resolver"))
	}
	if r.scanner == nil {
		r.scanner = search.New(search.WithLogger(r.log))
	}
	return r
}

// Resolve classifies the kernel, finds the privileged process and runs the strategy
// table. It returns false when the address could not be located; callers treat that
// as permanent.
func (r *Resolver) Resolve() (res Result, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("resolution aborted: ", rec)
			res, ok = Result{}, false
		}
	}()

	build := r.builds.BuildNumber()
	gen := winver.Classify(build)
	if gen == winver.Unknown {
		r.log.Warn("could not determine Windows build number")
		return Result{}, false
	}
	r.log.Infoln("Windows build", build, "using", gen.String(), "strategies")

	pids, err := r.transport.FindProcessesByName(r.cfg.PrivilegedProcess)
	if err != nil || len(pids) == 0 {
		r.log.Warn("failed to find ", r.cfg.PrivilegedProcess, ": ", err)
		return Result{}, false
	}
	kernel := process.Kernel(pids[0])

	for _, st := range r.strategies {
		if st.Applies != nil && !st.Applies(gen) {
			continue
		}
		sym, outcome := r.run(st, kernel)
		r.log.Debugln("strategy", st.Name, outcome.String())
		switch outcome {
		case Found:
			r.log.Infoln("Found", r.cfg.SymbolName, "at", sym.String())
			return Result{Symbol: sym, Context: kernel, Build: build, Generation: gen}, true
		case Abort:
			return Result{}, false
		}
	}
	return Result{}, false
}

// run invokes one extractor, turning panics and invalid addresses into misses.
func (r *Resolver) run(st Strategy, kernel process.ProcessContext) (sym Symbol, outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Debugln("strategy", st.Name, "panicked:", fmt.Sprint(rec))
			sym, outcome = Symbol{}, Miss
		}
	}()
	sym, outcome = st.Extract(r, kernel)
	if outcome == Found && !sym.Valid() {
		return Symbol{}, Miss
	}
	return sym, outcome
}
