//go:build v8

package jsprobe

import (
	"sync/atomic"
	"time"

	v8 "github.com/tommie/v8go"
	"go.trai.ch/zerr"
)

// Engine names the JavaScript engine compiled in.
const Engine = "v8"

func evaluate(src string, timeout time.Duration) (string, error) {
	iso := v8.NewIsolate()
	defer iso.Dispose()
	ctx := v8.NewContext(iso)
	defer ctx.Close()

	var timedOut atomic.Bool
	watchdog := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		iso.TerminateExecution()
	})
	defer watchdog.Stop()

	val, err := ctx.RunScript(src, "bootstrap.js")
	if err != nil {
		if timedOut.Load() {
			return "", zerr.With(zerr.Wrap(ErrEvaluate, "script timed out"), "timeout", timeout.String())
		}
		return "", zerr.Wrap(ErrEvaluate, err.Error())
	}
	if !val.IsString() {
		return "", zerr.Wrap(ErrEvaluate, "expected string, got "+val.String())
	}
	return val.String(), nil
}
