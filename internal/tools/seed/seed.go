// Package seed populates a development database with demo accounts by
// running the real signup, wallet, avatar, and loan flows against it.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/swoplabs/swopcredit/internal/services/account"
	avatarservice "github.com/swoplabs/swopcredit/internal/services/avatar"
	"github.com/swoplabs/swopcredit/internal/services/avatar/capture"
	loanservice "github.com/swoplabs/swopcredit/internal/services/loan"
	"github.com/swoplabs/swopcredit/internal/services/loan/terms"
	walletservice "github.com/swoplabs/swopcredit/internal/services/wallet"
	"github.com/swoplabs/swopcredit/internal/storage"
	"github.com/swoplabs/swopcredit/internal/storage/sqlite"
)

// Config holds seeding options.
type Config struct {
	DBPath   string
	Scenario string
	Verbose  bool
	Out      io.Writer
}

// DefaultConfig returns a Config with development defaults.
func DefaultConfig() Config {
	return Config{
		DBPath: "data/swopcredit.db",
		Out:    os.Stdout,
	}
}

// DemoPassword is the shared password for every seeded account.
const DemoPassword = "swop-demo-1234"

// scenario is one seeded user journey.
type scenario struct {
	name string
	run  func(ctx context.Context, env *environment) error
}

var scenarios = []scenario{
	{name: "fresh-signup", run: seedFreshSignup},
	{name: "avatar-confirmed", run: seedAvatarConfirmed},
	{name: "repeat-borrower", run: seedRepeatBorrower},
	{name: "active-loan", run: seedActiveLoan},
	{name: "defaulted-loan", run: seedDefaultedLoan},
}

// ListScenarios returns the available scenario names in order.
func ListScenarios() []string {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}

// environment carries the services every scenario drives plus a movable
// clock so journeys can start in the past.
type environment struct {
	store    *sqlite.Store
	accounts *account.Service
	wallets  *walletservice.Service
	loans    *loanservice.Service
	avatars  *avatarservice.Service
	now      time.Time
	verbose  bool
	out      io.Writer
}

func (env *environment) clock() time.Time { return env.now }

func (env *environment) logf(format string, args ...any) {
	if env.verbose {
		fmt.Fprintf(env.out, format+"\n", args...)
	}
}

func (env *environment) signUp(ctx context.Context, username string) (storage.Profile, error) {
	profile, err := env.accounts.SignUp(ctx, account.SignUpInput{
		Email:    username + "@swop.demo",
		Username: username,
		Password: DemoPassword,
	})
	if err != nil {
		return storage.Profile{}, fmt.Errorf("sign up %s: %w", username, err)
	}
	env.logf("created @%s (%s)", profile.Username, profile.ID)
	return profile, nil
}

// Run seeds the configured scenarios into the database at cfg.DBPath.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()

	env := &environment{store: store, now: time.Now().UTC(), verbose: cfg.Verbose, out: cfg.Out}
	if env.accounts, err = account.NewService(store, store, env.clock); err != nil {
		return err
	}
	if env.wallets, err = walletservice.NewService(store, store, env.clock); err != nil {
		return err
	}
	if env.loans, err = loanservice.NewService(store, store, env.clock, nil); err != nil {
		return err
	}
	if env.avatars, err = avatarservice.NewService(store, env.clock); err != nil {
		return err
	}

	ran := 0
	for _, s := range scenarios {
		if cfg.Scenario != "" && cfg.Scenario != s.name {
			continue
		}
		env.now = time.Now().UTC()
		if err := s.run(ctx, env); err != nil {
			return fmt.Errorf("scenario %s: %w", s.name, err)
		}
		fmt.Fprintf(cfg.Out, "seeded %s\n", s.name)
		ran++
	}
	if ran == 0 {
		return fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}

	// Seeded journeys queue the same events the live flows do. Drain them so
	// a worker started afterwards does not re-grant rewards for demo data.
	if err := drainOutbox(ctx, env); err != nil {
		return fmt.Errorf("drain outbox: %w", err)
	}
	return nil
}

func seedFreshSignup(ctx context.Context, env *environment) error {
	_, err := env.signUp(ctx, "nandi")
	return err
}

func seedAvatarConfirmed(ctx context.Context, env *environment) error {
	profile, err := env.signUp(ctx, "zanele")
	if err != nil {
		return err
	}
	if _, err := env.avatars.SignalExport(profile.ID, "https://models.readyplayer.me/64f0a1b2c3d4e5f6a7b8c9d0.glb", capture.SourceEmbed); err != nil {
		return err
	}
	if _, err := env.avatars.Confirm(ctx, profile.ID); err != nil {
		return err
	}
	return nil
}

// seedRepeatBorrower funds a wallet, completes two loan cycles at different
// urgencies, grants the matching rewards, and sends $SWOP to a second user.
func seedRepeatBorrower(ctx context.Context, env *environment) error {
	borrower, err := env.signUp(ctx, "thabo")
	if err != nil {
		return err
	}
	friend, err := env.signUp(ctx, "lindiwe")
	if err != nil {
		return err
	}

	base := env.now
	env.now = base.Add(-11 * 24 * time.Hour)
	if _, _, err := env.wallets.AddFunds(ctx, borrower.ID, 1500); err != nil {
		return err
	}

	if err := completeLoanCycle(ctx, env, borrower.ID, 300, base.Add(-10*24*time.Hour), 60*time.Hour); err != nil {
		return err
	}
	if err := completeLoanCycle(ctx, env, borrower.ID, 400, base.Add(-5*24*time.Hour), 10*time.Hour); err != nil {
		return err
	}
	env.now = base

	if _, _, err := env.wallets.AddFunds(ctx, friend.ID, 50); err != nil {
		return err
	}
	if _, err := env.wallets.SendSwop(ctx, borrower.ID, friend.Username, 40); err != nil {
		return err
	}
	return nil
}

func seedActiveLoan(ctx context.Context, env *environment) error {
	profile, err := env.signUp(ctx, "lerato")
	if err != nil {
		return err
	}
	base := env.now
	// Issued 50 hours ago so the countdown sits in the warning bucket.
	env.now = base.Add(-50 * time.Hour)
	if _, err := env.loans.RequestLoan(ctx, profile.ID, 250); err != nil {
		return err
	}
	env.now = base
	return nil
}

func seedDefaultedLoan(ctx context.Context, env *environment) error {
	profile, err := env.signUp(ctx, "sipho")
	if err != nil {
		return err
	}
	base := env.now
	env.now = base.Add(-100 * time.Hour)
	if _, err := env.loans.RequestLoan(ctx, profile.ID, 200); err != nil {
		return err
	}
	env.now = base
	if _, err := env.loans.SweepOverdue(ctx); err != nil {
		return err
	}
	return nil
}

// completeLoanCycle requests a loan at issuedAt, repays it after elapsed,
// and grants the reward the worker would for that urgency.
func completeLoanCycle(ctx context.Context, env *environment, userID string, amount int64, issuedAt time.Time, elapsed time.Duration) error {
	env.now = issuedAt
	loan, err := env.loans.RequestLoan(ctx, userID, amount)
	if err != nil {
		return err
	}
	env.now = issuedAt.Add(elapsed)
	repaid, err := env.loans.RepayLoan(ctx, userID, loan.ID)
	if err != nil {
		return err
	}

	urgency := terms.Urgency(repaid.DueDate, env.now)
	xp := terms.RepaymentXP(urgency)
	if _, err := env.store.GrantXP(ctx, storage.GrantXPInput{
		UserID:      userID,
		XP:          xp,
		LoanID:      repaid.ID,
		Description: fmt.Sprintf("Repayment reward (+%d XP)", xp),
		Now:         env.now,
	}); err != nil {
		return err
	}
	env.logf("loan %s repaid %s (+%d XP)", repaid.ID, urgency, xp)
	return nil
}

const drainConsumer = "seed"

func drainOutbox(ctx context.Context, env *environment) error {
	for {
		events, err := env.store.LeaseOutboxEvents(ctx, drainConsumer, 50, env.now, time.Minute)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, event := range events {
			if err := env.store.CompleteOutboxEvent(ctx, event.ID, drainConsumer, env.now); err != nil {
				return err
			}
		}
	}
}
