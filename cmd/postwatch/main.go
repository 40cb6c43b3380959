package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"postwatch/internal/analytics"
	"postwatch/internal/archive"
	"postwatch/internal/cmdlog"
	"postwatch/internal/config"
	"postwatch/internal/metrics"
	"postwatch/internal/monitor"
	"postwatch/internal/source"
	"postwatch/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdlog.Run("init", cmdInit)
	case "watch":
		err = cmdlog.Run("watch", cmdWatch)
	case "count":
		err = cmdlog.Run("count", cmdCount)
	case "stats":
		err = cmdlog.Run("stats", cmdStats)
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: postwatch <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./postwatch.yaml")
	fmt.Println("  watch       Monitor an account's posting activity")
	fmt.Println("  count       Count posts in a time range")
	fmt.Println("  stats       Show daily activity from the archive")
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./postwatch.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func loadConfig(fs *flag.FlagSet) (config.Config, error) {
	cfgPath := fs.String("config", "./postwatch.yaml", "config path")
	handle := fs.String("handle", "", "account handle to monitor (overrides config)")
	_ = fs.Parse(os.Args[2:])
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			cfg.ResolveEnv()
			cfg.Normalize()
		} else {
			return cfg, err
		}
	}
	if *handle != "" {
		cfg.Account.Handle = *handle
		cfg.Normalize()
	}
	if cfg.Account.Handle == "" {
		return cfg, errors.New("no account handle configured")
	}
	return cfg, nil
}

func cmdWatch() error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	src := source.FromConfig(cfg)
	mode := "simulated"
	if cfg.Credentials.BearerToken != "" {
		mode = "live"
	}

	var arc *archive.DB
	if cfg.Storage.DBPath != "" {
		arc, err = archive.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer arc.Close()
	}
	metrics.StartServer(cfg.Metrics.Addr)

	m := monitor.New(src, monitor.Options{
		RecentLimit:         cfg.Poll.RecentLimit,
		AccountRefreshEvery: time.Duration(cfg.Poll.AccountRefreshMinutes) * time.Minute,
		Archive:             arc,
	})
	defer m.Close()

	interval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	theme.PrintBanner()
	fmt.Printf("Monitoring @%s every %s (%s mode)\n", cfg.Account.Handle, interval, mode)
	if err := m.Start(cfg.Account.Handle, interval); err != nil {
		return err
	}
	if arc != nil {
		_ = arc.SaveCursor(context.Background(), "watch:last_account_id", m.AccountID())
	}

	// Optional configured range: count once at startup and re-count on the
	// refresh cadence. Refuse-if-busy makes the periodic re-request safe.
	var rangeStart, rangeEnd time.Time
	rangeSet := false
	if cfg.Range.Start != "" && cfg.Range.End != "" {
		rangeStart, err = config.ParseTime(cfg.Range.Start)
		if err != nil {
			return err
		}
		rangeEnd, err = config.ParseTime(cfg.Range.End)
		if err != nil {
			return err
		}
		rangeSet = true
		if err := m.RequestRangeCount(rangeStart, rangeEnd); err != nil {
			return err
		}
	}
	var rangeRefresh <-chan time.Time
	if rangeSet && cfg.Range.RefreshMinutes > 0 {
		t := time.NewTicker(time.Duration(cfg.Range.RefreshMinutes) * time.Minute)
		defer t.Stop()
		rangeRefresh = t.C
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			fmt.Println("\nstopping...")
			m.Stop()
			return nil
		case <-rangeRefresh:
			if err := m.RequestRangeCount(rangeStart, rangeEnd); err != nil && !errors.Is(err, monitor.ErrRangeBusy) {
				return err
			}
		case ev := <-m.Events():
			printEvent(ev)
		}
	}
}

func printEvent(ev monitor.Event) {
	switch e := ev.(type) {
	case monitor.Update:
		fmt.Printf("[%s] recent=%d new=%d today=%d session=%d\n",
			e.Timestamp.Format("15:04:05"), len(e.Posts), len(e.NewPosts), e.TodayCount, e.SessionCount)
		if e.Account != nil {
			fmt.Printf("  @%s (%s)  posts=%d followers=%d following=%d\n",
				e.Account.Handle, e.Account.Name, e.Account.TotalPosts, e.Account.Followers, e.Account.Following)
		}
		for _, p := range e.NewPosts {
			fmt.Printf("  NEW %-8s %s  %s\n", p.Kind, p.CreatedAt.Format("01-02 15:04"), p.Text)
		}
	case monitor.RangeResult:
		fmt.Printf("range %s .. %s: %d posts\n",
			e.Start.Format("2006-01-02 15:04"), e.End.Format("2006-01-02 15:04"), e.Count)
	case monitor.Error:
		fmt.Printf("error (%s): %s\n", e.Op, e.Message)
	}
}

func cmdCount() error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	startStr := fs.String("start", "", "range start, e.g. '2026-01-26 09:00'")
	endStr := fs.String("end", "", "range end, e.g. '2026-01-26 18:00'")
	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}
	if *startStr == "" {
		*startStr = cfg.Range.Start
	}
	if *endStr == "" {
		*endStr = cfg.Range.End
	}
	if *startStr == "" || *endStr == "" {
		return errors.New("count requires -start and -end")
	}
	start, err := config.ParseTime(*startStr)
	if err != nil {
		return err
	}
	end, err := config.ParseTime(*endStr)
	if err != nil {
		return err
	}

	src := source.FromConfig(cfg)
	m := monitor.New(src, monitor.Options{})
	defer m.Close()
	if err := m.Resolve(context.Background(), cfg.Account.Handle); err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.Account.Handle, err)
	}
	if err := m.RequestRangeCount(start, end); err != nil {
		return err
	}
	for ev := range m.Events() {
		switch e := ev.(type) {
		case monitor.RangeResult:
			fmt.Printf("@%s posted %d time(s) between %s and %s\n",
				cfg.Account.Handle, e.Count, start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
			return nil
		case monitor.Error:
			return errors.New(e.Message)
		}
	}
	return nil
}

func cmdStats() error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	days := fs.Int("days", 7, "how many days back to report")
	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}
	if cfg.Storage.DBPath == "" {
		return errors.New("no archive configured (storage.dbPath)")
	}
	arc, err := archive.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer arc.Close()

	ctx := context.Background()
	accountID, err := arc.LoadCursor(ctx, "watch:last_account_id")
	if err != nil {
		return err
	}
	if accountID == "" {
		info, err := source.FromConfig(cfg).AccountInfo(ctx, cfg.Account.Handle)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", cfg.Account.Handle, err)
		}
		accountID = info.ID
	}

	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	posts, err := arc.PostsBetween(ctx, accountID, start, end)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("no archived posts in range; run watch first")
		return nil
	}
	buckets := analytics.DailyActivity(posts)
	for _, day := range analytics.SortedDays(buckets) {
		kinds := buckets[day]
		total := 0
		for _, n := range kinds {
			total += n
		}
		fmt.Printf("%s  total=%-4d original=%-4d reply=%-4d repost=%d\n",
			day.Format("2006-01-02"), total, kinds["original"], kinds["reply"], kinds["repost"])
	}
	return nil
}
