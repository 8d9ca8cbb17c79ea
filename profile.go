/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// registerProfileHandlers exposes runtime profiles, useful for spotting
// contention between room locks under load.
func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", cfg.prefix+"/pprof/", pprof.Index)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}
