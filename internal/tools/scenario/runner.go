package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config controls scenario execution.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
	}
}

// DefaultPassword is the password every scripted actor signs up with.
const DefaultPassword = "scenario-pass-1234"

// actor is one scripted user with their own session cookie jar.
type actor struct {
	username string
	email    string
	client   *http.Client
	loanID   string
}

// Runner executes Lua scenarios against the API HTTP surface.
type Runner struct {
	baseURL    string
	timeout    time.Duration
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	actors     map[string]*actor
}

// NewRunner prepares a scenario runner for the given API base URL.
func NewRunner(cfg Config) (*Runner, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Runner{
		baseURL:    base,
		timeout:    timeout,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		actors:     map[string]*actor{},
	}, nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch step.Kind {
	case "signup":
		return r.runSignup(ctx, step)
	case "login":
		return r.runLogin(ctx, step)
	case "preferences":
		return r.runPreferences(ctx, step)
	case "add_funds":
		return r.runAdjust(ctx, step, "/app/wallet/add")
	case "withdraw":
		return r.runAdjust(ctx, step, "/app/wallet/withdraw")
	case "send":
		return r.runSend(ctx, step)
	case "quote":
		return r.runQuote(ctx, step)
	case "request_loan":
		return r.runRequestLoan(ctx, step)
	case "repay_loan":
		return r.runRepayLoan(ctx, step)
	case "avatar":
		return r.runAvatar(ctx, step)
	case "avatar_confirm":
		return r.runAvatarConfirm(ctx, step)
	case "expect_profile":
		return r.runExpectProfile(ctx, step)
	case "expect_ledger":
		return r.runExpectLedger(ctx, step)
	case "expect_active_loan":
		return r.runExpectActiveLoan(ctx, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runSignup(ctx context.Context, step Step) error {
	name := requiredString(step.Args, "name")
	if name == "" {
		return errors.New("signup name is required")
	}
	if _, ok := r.actors[name]; ok {
		return fmt.Errorf("actor %q already exists", name)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("build cookie jar: %w", err)
	}
	a := &actor{
		username: name,
		email:    optionalString(step.Args, "email", name+"@scenario.test"),
		client:   &http.Client{Jar: jar},
	}

	body := map[string]any{
		"email":    a.email,
		"username": a.username,
		"password": optionalString(step.Args, "password", DefaultPassword),
	}
	if _, err := r.call(ctx, a, http.MethodPost, "/auth/signup", body, http.StatusCreated); err != nil {
		return err
	}
	r.actors[name] = a
	return nil
}

func (r *Runner) runLogin(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	body := map[string]any{
		"email":    a.email,
		"password": optionalString(step.Args, "password", DefaultPassword),
	}
	_, err = r.call(ctx, a, http.MethodPost, "/auth/login", body, http.StatusOK)
	return err
}

func (r *Runner) runPreferences(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	body := map[string]any{}
	for _, key := range []string{"theme", "dark_mode", "username"} {
		if value, ok := step.Args[key]; ok {
			body[key] = value
		}
	}
	_, err = r.call(ctx, a, http.MethodPatch, "/app/profile/preferences", body, http.StatusOK)
	return err
}

func (r *Runner) runAdjust(ctx context.Context, step Step, path string) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	amount, ok := intArg(step.Args, "amount")
	if !ok {
		return errors.New("amount is required")
	}
	_, err = r.call(ctx, a, http.MethodPost, path, map[string]any{"amount": amount}, http.StatusOK)
	return err
}

func (r *Runner) runSend(ctx context.Context, step Step) error {
	from, err := r.actorNamed(requiredString(step.Args, "from"))
	if err != nil {
		return err
	}
	to := requiredString(step.Args, "to")
	if to == "" {
		return errors.New("send target is required")
	}
	amount, ok := intArg(step.Args, "amount")
	if !ok {
		return errors.New("amount is required")
	}
	body := map[string]any{"username": to, "amount": amount}
	_, err = r.call(ctx, from, http.MethodPost, "/app/wallet/send", body, http.StatusOK)
	return err
}

func (r *Runner) runQuote(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	amount, ok := intArg(step.Args, "amount")
	if !ok {
		return errors.New("amount is required")
	}
	payload, err := r.call(ctx, a, http.MethodGet, fmt.Sprintf("/app/loans/quote?amount=%d", amount), nil, http.StatusOK)
	if err != nil {
		return err
	}
	var quote struct {
		InitiationFee int64 `json:"initiation_fee"`
		Disbursement  int64 `json:"disbursement"`
	}
	if err := json.Unmarshal(payload, &quote); err != nil {
		return fmt.Errorf("decode quote: %w", err)
	}
	if want, ok := intArg(step.Args, "expect_fee"); ok {
		if err := r.assertions.EqualInt("initiation fee", int64(want), quote.InitiationFee); err != nil {
			return err
		}
	}
	if want, ok := intArg(step.Args, "expect_disbursement"); ok {
		if err := r.assertions.EqualInt("disbursement", int64(want), quote.Disbursement); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runRequestLoan(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	amount, ok := intArg(step.Args, "amount")
	if !ok {
		return errors.New("amount is required")
	}
	payload, err := r.call(ctx, a, http.MethodPost, "/app/loans/request", map[string]any{"amount": amount}, http.StatusCreated)
	if err != nil {
		return err
	}
	var response struct {
		Loan struct {
			ID string `json:"id"`
		} `json:"loan"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return fmt.Errorf("decode loan: %w", err)
	}
	if response.Loan.ID == "" {
		return errors.New("loan response missing id")
	}
	a.loanID = response.Loan.ID
	return nil
}

func (r *Runner) runRepayLoan(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	loanID := optionalString(step.Args, "loan", a.loanID)
	if loanID == "" {
		return errors.New("no loan to repay; request one first")
	}
	_, err = r.call(ctx, a, http.MethodPost, "/app/loans/"+loanID+"/repay", nil, http.StatusOK)
	if err == nil {
		a.loanID = ""
	}
	return err
}

func (r *Runner) runAvatar(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	avatarURL := requiredString(step.Args, "url")
	if avatarURL == "" {
		return errors.New("avatar url is required")
	}
	_, err = r.call(ctx, a, http.MethodPost, "/app/avatar/manual", map[string]any{"url": avatarURL}, http.StatusOK)
	return err
}

func (r *Runner) runAvatarConfirm(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	_, err = r.call(ctx, a, http.MethodPost, "/app/avatar/confirm", nil, http.StatusOK)
	return err
}

func (r *Runner) runExpectProfile(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	payload, err := r.call(ctx, a, http.MethodGet, "/app/profile", nil, http.StatusOK)
	if err != nil {
		return err
	}
	var response struct {
		Profile struct {
			Balance     int64  `json:"balance"`
			SwopBalance int64  `json:"swop_balance"`
			XP          int64  `json:"xp"`
			Tier        string `json:"tier"`
			ActiveLoan  bool   `json:"active_loan"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	if want, ok := intArg(step.Args, "balance"); ok {
		if err := r.assertions.EqualInt("balance", int64(want), response.Profile.Balance); err != nil {
			return err
		}
	}
	if want, ok := intArg(step.Args, "swop_balance"); ok {
		if err := r.assertions.EqualInt("swop balance", int64(want), response.Profile.SwopBalance); err != nil {
			return err
		}
	}
	if want, ok := intArg(step.Args, "xp"); ok {
		if err := r.assertions.EqualInt("xp", int64(want), response.Profile.XP); err != nil {
			return err
		}
	}
	if want := optionalString(step.Args, "tier", ""); want != "" {
		if err := r.assertions.EqualString("tier", want, response.Profile.Tier); err != nil {
			return err
		}
	}
	if want, ok := step.Args["active_loan"].(bool); ok {
		if err := r.assertions.EqualBool("active loan", want, response.Profile.ActiveLoan); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runExpectLedger(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	path := "/app/wallet/ledger"
	if filter := optionalString(step.Args, "filter", ""); filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	payload, err := r.call(ctx, a, http.MethodGet, path, nil, http.StatusOK)
	if err != nil {
		return err
	}
	var response struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return fmt.Errorf("decode ledger: %w", err)
	}
	if want, ok := intArg(step.Args, "count"); ok {
		if err := r.assertions.EqualInt("ledger rows", int64(want), int64(len(response.Transactions))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runExpectActiveLoan(ctx context.Context, step Step) error {
	a, err := r.actor(step.Args)
	if err != nil {
		return err
	}
	payload, err := r.call(ctx, a, http.MethodGet, "/app/loans/active", nil, http.StatusOK)
	if err != nil {
		return err
	}
	var response struct {
		HasActive bool   `json:"has_active"`
		Urgency   string `json:"urgency"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return fmt.Errorf("decode active loan: %w", err)
	}
	if want, ok := step.Args["active"].(bool); ok {
		if err := r.assertions.EqualBool("has active loan", want, response.HasActive); err != nil {
			return err
		}
	}
	if want := optionalString(step.Args, "urgency", ""); want != "" {
		if err := r.assertions.EqualString("urgency", want, response.Urgency); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) actor(args map[string]any) (*actor, error) {
	return r.actorNamed(requiredString(args, "name"))
}

func (r *Runner) actorNamed(name string) (*actor, error) {
	if name == "" {
		return nil, errors.New("actor name is required")
	}
	a, ok := r.actors[name]
	if !ok {
		return nil, fmt.Errorf("unknown actor %q; sign them up first", name)
	}
	return a, nil
}

func (r *Runner) call(ctx context.Context, a *actor, method string, path string, body any, wantStatus int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("%s %s: status %d (want %d): %s", method, path, resp.StatusCode, wantStatus, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

func requiredString(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return strings.TrimSpace(value)
}

func optionalString(args map[string]any, key string, fallback string) string {
	if value, ok := args[key].(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func intArg(args map[string]any, key string) (int, bool) {
	switch value := args[key].(type) {
	case int:
		return value, true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}
