package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/interrupt"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bench"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/alexflint/go-arg"
)

var log, chk = slog.New(os.Stderr)

type Args struct {
	Relay       string        `arg:"-r,--relay,required" help:"relay url"`
	Function    string        `arg:"-f,--function" default:"events_per_second" help:"events_per_second, req_per_second or adds_per_second"`
	Concurrency int           `arg:"-c,--concurrency" default:"2" help:"number of runs at once"`
	Num         int           `arg:"-n,--num" default:"100" help:"events published per run by adds_per_second"`
	Kind        int           `arg:"-k,--kind" default:"22222" help:"kind queried"`
	Limit       int           `arg:"-l,--limit" default:"500" help:"filter limit"`
	Duration    time.Duration `arg:"-d,--duration" default:"10s" help:"length of a req_per_second run"`
	LogLevel    string        `arg:"--loglevel" default:"info" help:"off, fatal, error, warn, info, debug or trace"`
}

func (Args) Description() string {
	return "measure how fast a relay stores and serves events"
}

// benchmark returns the benchmark the arguments name.
func benchmark(a Args) (fn bench.Func, err error) {
	if a.Kind < 0 || a.Kind > 65535 {
		return nil, fmt.Errorf("invalid kind %d", a.Kind)
	}
	k := kind.T(a.Kind)
	switch a.Function {
	case "events_per_second":
		fn = func(c context.T) (bench.Result, error) {
			return bench.EventsPerSecond(c, a.Relay, k, a.Limit)
		}
	case "req_per_second":
		fn = func(c context.T) (bench.Result, error) {
			return bench.ReqPerSecond(c, a.Relay, k, a.Limit, a.Duration)
		}
	case "adds_per_second":
		fn = func(c context.T) (bench.Result, error) {
			return bench.AddsPerSecond(c, a.Relay, a.Num)
		}
	default:
		return nil, fmt.Errorf("unknown function %s", a.Function)
	}
	return
}

func run(c context.T, a Args) (total float64, err error) {
	var fn bench.Func
	if fn, err = benchmark(a); err != nil {
		return
	}
	if a.Concurrency < 1 {
		a.Concurrency = 1
	}
	log.I.F("running %s on %s with concurrency %d", a.Function, a.Relay,
		a.Concurrency)
	if total, _, err = bench.Run(c, a.Concurrency, fn); chk.E(err) {
		return
	}
	return
}

func main() {
	var a Args
	arg.MustParse(&a)
	slog.SetLogLevelByName(a.LogLevel)
	c, cancel := interrupt.Context(context.Bg())
	defer cancel()
	total, err := run(c, a)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Total throughput: %.1f/sec\n", total)
}
