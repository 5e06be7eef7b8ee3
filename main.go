package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsalo/fieldscan/cmd"
	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/telemetry"
)

// version and buildDate are populated by the linker at release build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldscan: loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	// First interrupt cancels the run context so in-flight analyses can
	// finish their per-file work and the master still gets compiled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	execErr := cmd.RootCommand(settings).ExecuteContext(ctx)

	// Give buffered telemetry a chance to leave before exit.
	telemetry.Flush(3 * time.Second)

	if execErr != nil {
		os.Exit(1)
	}
}
