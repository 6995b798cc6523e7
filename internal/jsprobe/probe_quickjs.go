//go:build !v8

package jsprobe

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.trai.ch/zerr"
	"modernc.org/quickjs"
)

// Engine names the JavaScript engine compiled in.
const Engine = "quickjs"

func evaluate(src string, timeout time.Duration) (string, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return "", zerr.Wrap(ErrEvaluate, "creating VM: "+err.Error())
	}
	defer vm.Close()

	var timedOut atomic.Bool
	watchdog := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		vm.Interrupt()
	})
	defer watchdog.Stop()

	v, err := vm.Eval(src, quickjs.EvalGlobal)
	if err != nil {
		if timedOut.Load() {
			return "", zerr.With(zerr.Wrap(ErrEvaluate, "script timed out"), "timeout", timeout.String())
		}
		return "", zerr.Wrap(ErrEvaluate, err.Error())
	}
	s, ok := v.(string)
	if !ok {
		return "", zerr.Wrap(ErrEvaluate, fmt.Sprintf("expected string, got %T", v))
	}
	return s, nil
}
