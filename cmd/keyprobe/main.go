package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"gokbd/config"
	"gokbd/hexdump"
	"gokbd/input"
	"gokbd/process_blob"
)

func main() {
	configFlag := flag.String("config", "keyprobe.toml", "Configuration file (defaults are used when missing)")
	snapshotFlag := flag.String("snapshot", "", "Snapshot directory to resolve against")
	watchFlag := flag.Bool("watch", false, "Reload hotkeys when the configuration file changes")
	bitmapFlag := flag.Bool("bitmap", false, "Print the key-state grid after resolution")
	durationFlag := flag.Duration("duration", 0, "Stop after this long (0 waits for interrupt)")
	flag.Parse()

	if *snapshotFlag == "" {
		fmt.Println("Error: --snapshot is required")
		flag.Usage()
		os.Exit(1)
	}

	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "keyprobe"))

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	mem, err := process_blob.Load(*snapshotFlag)
	if err != nil {
		fmt.Printf("Error loading snapshot from %s: %v\n", *snapshotFlag, err)
		os.Exit(1)
	}

	options, err := cfg.ManagerOptions()
	if err != nil {
		fmt.Printf("Error in config: %v\n", err)
		os.Exit(1)
	}

	bind := transitionLogger(log)
	table := input.NewHotkeyTable(cfg.BindHotkeys(bind)...)
	options = append(options, input.WithHotkeys(table.Snapshot), input.WithLogger(log))

	m, err := input.New(mem, options...)
	if err != nil {
		fmt.Printf("Error starting input: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	res, ok := m.Resolution()
	if !ok {
		fmt.Println("Key state not resolved, running on fallback sources")
	} else {
		fmt.Printf("Build:      %d (%s)\n", res.Build, res.Generation)
		fmt.Printf("Key state:  %s via %s\n", res.Symbol.Address.ToString(), res.Symbol.Source)
		fmt.Printf("Context:    %s\n", res.Context)
	}

	if *bitmapFlag && m.Poller() != nil {
		p := m.Poller()
		if err := p.Refresh(); err != nil {
			fmt.Printf("Error reading key state: %v\n", err)
		} else {
			hexdump.Bitmap(os.Stdout, p.Bitmap(), true)
		}
	}

	if *watchFlag {
		w := config.NewWatcher(*configFlag, func(c *config.Config) {
			table.Replace(c.BindHotkeys(bind))
			log.Infoln("Reloaded", len(c.Hotkeys), "hotkey(s)")
		})
		if err := w.Start(); err != nil {
			log.Warn("config watch disabled: ", err)
		} else {
			defer w.Close()
			go func() {
				for err := range w.Errors() {
					log.Warn(err)
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *durationFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *durationFlag)
		defer cancel()
	}

	start := time.Now()
	<-ctx.Done()

	if p := m.Poller(); p != nil {
		attempts, succeeded := p.Stats()
		fmt.Printf("%d/%d key-state reads succeeded in %s\n", succeeded, attempts, time.Since(start).Round(time.Millisecond))
	}
}

// transitionLogger binds every configured hotkey to an action logging its up/down
// transitions.
func transitionLogger(log *logger.Logger) func(string, input.VirtualKey) input.Action {
	return func(name string, key input.VirtualKey) input.Action {
		down := false
		return input.ActionFunc(func(isDown bool) {
			if isDown == down {
				return
			}
			down = isDown
			state := "released"
			if isDown {
				state = "pressed"
			}
			log.Infoln(name, key, state)
		})
	}
}
