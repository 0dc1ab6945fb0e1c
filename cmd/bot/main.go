package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"pandorum/internal/app"
)

func main() {
	var (
		cfgPath string
		dry     bool
		passive bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")
	flag.BoolVar(&dry, "dry", false, "initialize everything, then exit")
	flag.BoolVar(&passive, "passive", false, "run without the command surface")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfgPath, app.Options{Passive: passive})
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if dry {
		fmt.Println("dry run -- exiting")
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdog(ctx)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	_ = a.Stop(context.Background())
}

// watchdog keeps systemd's watchdog fed when enabled for the unit.
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
