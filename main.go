package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"wisp/internal/config"
	"wisp/internal/database"
	"wisp/internal/game"
	"wisp/internal/log"
	"wisp/internal/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Global panic handler first
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "Application crashed. See wisp_debug.log for details.\n")
			os.Exit(1)
		}
	}()

	var (
		dbPath      = flag.String("db", "wisp.db", "reference database path")
		logPath     = flag.String("log", "wisp_debug.log", "debug log path")
		tickPeriod  = flag.Duration("tick", 0, "override the tick period (0 = default)")
		reserve     = flag.Int("reserve", -1, "mana reserve floor percent (-1 = default)")
		reconnects  = flag.Int("reconnects", 0, "max reconnect attempts (0 = unbounded)")
		mapPath     = flag.String("map", "", "write the room map as DOT on exit")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("wisp %s (%s) built %s\n", version, commit, date)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: wisp [flags] host[:port]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	address := flag.Arg(0)

	// Log to file when attached to a terminal so status text stays readable
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if err := log.SetFileOutput(*logPath); err != nil {
			fmt.Printf("Warning: could not configure debug logging to file: %v\n", err)
		}
	}
	defer log.Close()

	tuning := config.DefaultTuning()
	if *tickPeriod > 0 {
		tuning.TickPeriod = *tickPeriod
		tuning.CastCooldown = *tickPeriod + 500*time.Millisecond
	}
	if *reserve >= 0 {
		tuning.ManaReservePct = *reserve
	}
	tuning.MaxReconnects = *reconnects

	db := database.New()
	if err := db.Open(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open reference database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sess, err := session.New(address, db, tuning)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create session: %v\n", err)
		os.Exit(1)
	}

	// Surface status text on the console
	sess.Bus().Subscribe(game.EventStatus, func(n game.Notification) {
		if msg, ok := n.Payload.(string); ok {
			fmt.Println("* " + msg)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go forwardStdin(sess)

	if err := sess.Run(ctx); err != nil && err != context.Canceled {
		log.Error("session ended", "error", err)
	}

	if *mapPath != "" {
		if f, err := os.Create(*mapPath); err == nil {
			if err := sess.Tracker().ExportDOT(f); err != nil {
				log.Warn("failed to export room map", "error", err)
			}
			f.Close()
		}
	}

	stats := sess.Store().Stats()
	fmt.Printf("session: %d lines, %d commands, %d heals, %d cures, %d buffs, %d attacks\n",
		stats.LinesParsed, stats.CommandsSent, stats.HealsCast, stats.CuresCast,
		stats.BuffsCast, stats.AttacksStarted)
}

// forwardStdin passes typed lines through to the server. A leading slash
// addresses the agent itself.
func forwardStdin(sess *session.Session) {
	scanner := newStdinScanner()
	for scanner.Scan() {
		line := scanner.Text()
		switch line {
		case "/pause":
			sess.SetPaused(true)
		case "/resume":
			sess.SetPaused(false)
		case "/reload":
			if err := sess.Reload(); err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			}
		case "/quit":
			sess.Disconnect()
			return
		default:
			sess.SendInput(line)
		}
	}
}
