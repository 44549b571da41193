package loan

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
	"github.com/swoplabs/swopcredit/internal/services/account/tier"
	"github.com/swoplabs/swopcredit/internal/services/loan/terms"
	"github.com/swoplabs/swopcredit/internal/storage"
)

type fakeProfileStore struct {
	profiles map[string]storage.Profile
}

func (f *fakeProfileStore) CreateProfile(ctx context.Context, profile storage.Profile) error {
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return storage.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (f *fakeProfileStore) GetProfileByUsername(ctx context.Context, username string) (storage.Profile, error) {
	for _, profile := range f.profiles {
		if profile.Username == username {
			return profile, nil
		}
	}
	return storage.Profile{}, storage.ErrNotFound
}

func (f *fakeProfileStore) GetProfileByEmail(ctx context.Context, email string) (storage.Profile, error) {
	for _, profile := range f.profiles {
		if profile.Email == email {
			return profile, nil
		}
	}
	return storage.Profile{}, storage.ErrNotFound
}

func (f *fakeProfileStore) UpdatePreferences(ctx context.Context, userID string, update storage.PreferenceUpdate, now time.Time) (storage.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return storage.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

type fakeLoanStore struct {
	loans        map[string]storage.Loan
	disbursed    []int64
	descriptions []string
	repayInputs  []storage.RepayInput
}

func newFakeLoanStore() *fakeLoanStore {
	return &fakeLoanStore{loans: make(map[string]storage.Loan)}
}

func (f *fakeLoanStore) DisburseLoan(ctx context.Context, loan storage.Loan, disbursement int64, description string) (storage.Loan, error) {
	for _, existing := range f.loans {
		if existing.UserID == loan.UserID && existing.Status == storage.LoanStatusActive {
			return storage.Loan{}, storage.ErrActiveLoanExists
		}
	}
	if loan.ID == "" {
		loan.ID = "loan-1"
	}
	loan.Status = storage.LoanStatusActive
	f.loans[loan.ID] = loan
	f.disbursed = append(f.disbursed, disbursement)
	f.descriptions = append(f.descriptions, description)
	return loan, nil
}

func (f *fakeLoanStore) RepayLoan(ctx context.Context, input storage.RepayInput) (storage.Loan, error) {
	loan, ok := f.loans[input.LoanID]
	if !ok || loan.UserID != input.UserID {
		return storage.Loan{}, storage.ErrNotFound
	}
	if loan.Status != storage.LoanStatusActive {
		return storage.Loan{}, storage.ErrLoanNotActive
	}
	loan.Status = storage.LoanStatusCompleted
	loan.CompletedAt = input.Now
	loan.RepaidAmount = loan.TotalAmount
	f.loans[input.LoanID] = loan
	f.repayInputs = append(f.repayInputs, input)
	return loan, nil
}

func (f *fakeLoanStore) GetLoan(ctx context.Context, loanID string) (storage.Loan, error) {
	loan, ok := f.loans[loanID]
	if !ok {
		return storage.Loan{}, storage.ErrNotFound
	}
	return loan, nil
}

func (f *fakeLoanStore) GetActiveLoan(ctx context.Context, userID string) (storage.Loan, error) {
	for _, loan := range f.loans {
		if loan.UserID == userID && loan.Status == storage.LoanStatusActive {
			return loan, nil
		}
	}
	return storage.Loan{}, storage.ErrNotFound
}

func (f *fakeLoanStore) ListLoans(ctx context.Context, userID string, limit int) ([]storage.Loan, error) {
	var out []storage.Loan
	for _, loan := range f.loans {
		if loan.UserID == userID {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) SweepOverdueLoans(ctx context.Context, now time.Time) ([]storage.Loan, error) {
	var defaulted []storage.Loan
	for id, loan := range f.loans {
		if loan.Status == storage.LoanStatusActive && loan.DueDate.Before(now) {
			loan.Status = storage.LoanStatusDefaulted
			f.loans[id] = loan
			defaulted = append(defaulted, loan)
		}
	}
	return defaulted, nil
}

func newTestService(t *testing.T, now time.Time) (*Service, *fakeProfileStore, *fakeLoanStore) {
	t.Helper()
	profiles := &fakeProfileStore{profiles: map[string]storage.Profile{
		"user-1": {
			ID:        "user-1",
			Username:  "ayanda",
			Tier:      tier.Bronze,
			LoanLimit: 500,
		},
	}}
	loans := newFakeLoanStore()
	service, err := NewService(profiles, loans, func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, profiles, loans
}

func TestRequestLoanIssuesWithCycleTerms(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	service, _, loans := newTestService(t, now)

	created, err := service.RequestLoan(context.Background(), "user-1", 500)
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}
	if created.InitiationFee != 215 {
		t.Fatalf("expected fee 215, got %d", created.InitiationFee)
	}
	if created.TotalAmount != 500 {
		t.Fatalf("expected total 500, got %d", created.TotalAmount)
	}
	if !created.DueDate.Equal(now.Add(72 * time.Hour)) {
		t.Fatalf("unexpected due date: %v", created.DueDate)
	}
	if len(loans.disbursed) != 1 || loans.disbursed[0] != 285 {
		t.Fatalf("unexpected disbursement: %v", loans.disbursed)
	}
}

func TestRequestLoanOverLimit(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	_, err := service.RequestLoan(context.Background(), "user-1", 800)
	if apperrors.GetCode(err) != apperrors.CodeLoanOverLimit {
		t.Fatalf("expected over limit, got %v", err)
	}
}

func TestRequestLoanBelowMinimum(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	_, err := service.RequestLoan(context.Background(), "user-1", 50)
	if apperrors.GetCode(err) != apperrors.CodeLoanBelowMinimum {
		t.Fatalf("expected below minimum, got %v", err)
	}
}

func TestRequestLoanUnknownUser(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	_, err := service.RequestLoan(context.Background(), "missing", 500)
	if apperrors.GetCode(err) != apperrors.CodeUserNotFound {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestRequestLoanSecondActiveRejected(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	if _, err := service.RequestLoan(context.Background(), "user-1", 500); err != nil {
		t.Fatalf("request loan: %v", err)
	}
	_, err := service.RequestLoan(context.Background(), "user-1", 300)
	if apperrors.GetCode(err) != apperrors.CodeLoanActiveExists {
		t.Fatalf("expected active exists, got %v", err)
	}
}

func TestRepayLoanCarriesUrgency(t *testing.T) {
	start := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	current := start
	profiles := &fakeProfileStore{profiles: map[string]storage.Profile{
		"user-1": {ID: "user-1", LoanLimit: 500},
	}}
	loans := newFakeLoanStore()
	service, err := NewService(profiles, loans, func() time.Time { return current }, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := service.RequestLoan(context.Background(), "user-1", 500)
	if err != nil {
		t.Fatalf("request loan: %v", err)
	}

	current = start.Add(62 * time.Hour)
	if _, err := service.RepayLoan(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("repay loan: %v", err)
	}
	if len(loans.repayInputs) != 1 {
		t.Fatalf("expected 1 repay call, got %d", len(loans.repayInputs))
	}
	if loans.repayInputs[0].Urgency != terms.UrgencyCritical {
		t.Fatalf("expected critical urgency, got %s", loans.repayInputs[0].Urgency)
	}
}

func TestRepayLoanMissing(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	_, err := service.RepayLoan(context.Background(), "user-1", "missing")
	if apperrors.GetCode(err) != apperrors.CodeLoanNotFound {
		t.Fatalf("expected loan not found, got %v", err)
	}
}

func TestActiveStatusReportsUrgency(t *testing.T) {
	start := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	current := start
	profiles := &fakeProfileStore{profiles: map[string]storage.Profile{
		"user-1": {ID: "user-1", LoanLimit: 500},
	}}
	loans := newFakeLoanStore()
	service, err := NewService(profiles, loans, func() time.Time { return current }, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	status, err := service.ActiveStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("active status: %v", err)
	}
	if status.HasActive {
		t.Fatal("expected no active loan")
	}

	if _, err := service.RequestLoan(context.Background(), "user-1", 500); err != nil {
		t.Fatalf("request loan: %v", err)
	}

	current = start.Add(55 * time.Hour)
	status, err = service.ActiveStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("active status: %v", err)
	}
	if !status.HasActive {
		t.Fatal("expected active loan")
	}
	if status.Urgency != terms.UrgencyWarning {
		t.Fatalf("expected warning urgency, got %s", status.Urgency)
	}
	if status.Remaining != 17*time.Hour {
		t.Fatalf("expected 17h remaining, got %v", status.Remaining)
	}
}

func TestQuoteLoan(t *testing.T) {
	service, _, _ := newTestService(t, time.Now())

	quote, err := service.QuoteLoan(context.Background(), "user-1", 500)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.InitiationFee != 215 || quote.Disbursement != 285 || quote.CycleHours != 72 {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	_, err = service.QuoteLoan(context.Background(), "user-1", 5000)
	if apperrors.GetCode(err) != apperrors.CodeLoanOverLimit {
		t.Fatalf("expected over limit, got %v", err)
	}
}

func TestSweepOverdueDefaults(t *testing.T) {
	start := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	current := start
	profiles := &fakeProfileStore{profiles: map[string]storage.Profile{
		"user-1": {ID: "user-1", LoanLimit: 500},
	}}
	loans := newFakeLoanStore()
	service, err := NewService(profiles, loans, func() time.Time { return current }, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := service.RequestLoan(context.Background(), "user-1", 500); err != nil {
		t.Fatalf("request loan: %v", err)
	}

	current = start.Add(80 * time.Hour)
	defaulted, err := service.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(defaulted) != 1 {
		t.Fatalf("expected 1 defaulted loan, got %d", len(defaulted))
	}
	if got := loans.loans[defaulted[0].ID].Status; got != storage.LoanStatusDefaulted {
		t.Fatalf("expected defaulted status, got %s", got)
	}
}
