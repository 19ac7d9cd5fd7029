// userctl is the admin CLI: register users, flip the premium flag and inspect
// today's usage without going through the service API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/module/usage"
	"github.com/echoverse/server/internal/module/user"
	"github.com/echoverse/server/internal/shared/config"
	"github.com/echoverse/server/internal/shared/database"
	"go.uber.org/zap"
)

func main() {
	var (
		userFlag    string
		premiumFlag bool
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: userctl <register|set-premium|set-free|remaining|usage|plans> [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&userFlag, "user", "", "user ID to operate on")
	flag.BoolVar(&premiumFlag, "premium", false, "register the user as premium")

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if err := flag.CommandLine.Parse(os.Args[2:]); err != nil {
		exitWithError(err)
	}

	cfg, err := config.Load()
	if err != nil {
		exitWithError(fmt.Errorf("load config: %w", err))
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		exitWithError(fmt.Errorf("connect database: %w", err))
	}
	defer database.Close(db)

	users := user.NewService(user.NewRepository(db), zap.NewNop())
	ledger := usage.NewRepository(db, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := strings.TrimSpace(userFlag)

	switch command {
	case "register":
		requireUser(userID)
		profile, err := users.Register(ctx, userID, premiumFlag)
		if err != nil {
			exitWithError(fmt.Errorf("register: %w", err))
		}
		fmt.Printf("registered %s (premium=%t)\n", profile.UserID, profile.IsPremium)

	case "set-premium", "set-free":
		requireUser(userID)
		premium := command == "set-premium"
		if err := users.SetPremium(ctx, userID, premium); err != nil {
			exitWithError(fmt.Errorf("update tier: %w", err))
		}
		fmt.Printf("user %s premium=%t\n", userID, premium)

	case "remaining":
		requireUser(userID)
		policy, err := quota.NewPolicy(cfg.Quota.FreeLimits)
		if err != nil {
			exitWithError(fmt.Errorf("quota policy: %w", err))
		}
		premium, err := users.IsPremium(ctx, userID)
		if err != nil {
			exitWithError(fmt.Errorf("load profile: %w", err))
		}
		if premium {
			fmt.Printf("user %s is premium: unlimited\n", userID)
			return
		}
		now := time.Now().UTC()
		for _, f := range quota.Features() {
			count, err := ledger.CountToday(ctx, userID, f, now)
			if err != nil {
				exitWithError(fmt.Errorf("count usage: %w", err))
			}
			left := policy.Limit(f) - count
			if left < 0 {
				left = 0
			}
			fmt.Printf("  %-14s %d of %d left\n", f, left, policy.Limit(f))
		}

	case "usage":
		requireUser(userID)
		stats, err := ledger.DailyStats(ctx, userID, time.Now().UTC())
		if err != nil {
			exitWithError(fmt.Errorf("load usage: %w", err))
		}
		fmt.Printf("usage for %s on %s (UTC):\n", userID, time.Now().UTC().Format("2006-01-02"))
		features := quota.Features()
		sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
		for _, f := range features {
			fmt.Printf("  %-14s %d\n", f, stats[f])
		}

	case "plans":
		plans, err := users.ListPlans(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("load plans: %w", err))
		}
		for _, p := range plans {
			fmt.Printf("%s: %s\n", p.ID, p.Name)
			for _, feature := range p.Features {
				fmt.Printf("  - %s\n", feature)
			}
		}

	default:
		flag.Usage()
		exitWithError(fmt.Errorf("unknown command %q", command))
	}
}

func requireUser(userID string) {
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
