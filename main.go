// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"openhush/cmd"
	"openhush/internal/log"
	"openhush/pkg/build"
)

func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete, using development defaults: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
