package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ Gateway = (*Mock)(nil)
var _ Reconciler = (*Mock)(nil)

// Transaction is a transfer recorded by the mock.
type Transaction struct {
	ID        string
	Type      string // "debit" or "credit"
	Phone     string
	Amount    decimal.Decimal
	Reference string
	Status    string // "success" or "failed"
	Reason    string
	Timestamp time.Time
}

// Mock is an in-memory mobile money provider. Wallets start at
// DefaultBalance; failures can be queued per phone.
type Mock struct {
	DefaultBalance decimal.Decimal

	mu           sync.Mutex
	wallets      map[string]decimal.Decimal
	failures     map[string][]error
	lost         map[string]int
	transactions []Transaction
	byReference  map[string]string
}

// NewMock creates a mock provider whose wallets start at defaultBalance.
func NewMock(defaultBalance decimal.Decimal) *Mock {
	return &Mock{
		DefaultBalance: defaultBalance,
		wallets:        make(map[string]decimal.Decimal),
		failures:       make(map[string][]error),
		lost:           make(map[string]int),
		byReference:    make(map[string]string),
	}
}

// SetBalance sets a wallet balance.
func (m *Mock) SetBalance(phone string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[phone] = balance
}

// Balance returns a wallet balance.
func (m *Mock) Balance(phone string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(phone)
}

// FailNext queues err for the next call touching phone.
func (m *Mock) FailNext(phone string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[phone] = append(m.failures[phone], err)
}

// LoseNextResponse makes the next call for phone apply the transfer but
// report ErrTransport, as if the response was lost on the way back.
func (m *Mock) LoseNextResponse(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lost[phone]++
}

// Transactions returns a copy of the recorded transfers.
func (m *Mock) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out
}

// Debit implements Gateway.
func (m *Mock) Debit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	return m.transfer(ctx, "debit", phone, amount, reference)
}

// Credit implements Gateway.
func (m *Mock) Credit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	return m.transfer(ctx, "credit", phone, amount, reference)
}

// Lookup implements Reconciler.
func (m *Mock) Lookup(ctx context.Context, reference string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txID, ok := m.byReference[reference]
	return txID, ok, nil
}

func (m *Mock) transfer(ctx context.Context, kind, phone string, amount decimal.Decimal, reference string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Replays of an applied reference return the original transaction.
	if txID, ok := m.byReference[reference]; ok && reference != "" {
		return txID, nil
	}

	if !validPhone(phone) {
		m.record(kind, phone, amount, reference, "", ErrInvalidAccount)
		return "", fmt.Errorf("%w: %s", ErrInvalidAccount, phone)
	}

	if queued := m.failures[phone]; len(queued) > 0 {
		err := queued[0]
		m.failures[phone] = queued[1:]
		m.record(kind, phone, amount, reference, "", err)
		return "", err
	}

	balance := m.balance(phone)
	if kind == "debit" {
		if balance.LessThan(amount) {
			m.record(kind, phone, amount, reference, "", ErrInsufficientFunds)
			return "", fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, balance.StringFixed(2), amount.StringFixed(2))
		}
		m.wallets[phone] = balance.Sub(amount)
	} else {
		m.wallets[phone] = balance.Add(amount)
	}

	txID := "MOMO" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	m.record(kind, phone, amount, reference, txID, nil)
	if reference != "" {
		m.byReference[reference] = txID
	}

	slog.Debug("mock gateway transfer applied", "type", kind, "phone", phone, "amount", amount.StringFixed(2), "transaction_id", txID)

	if m.lost[phone] > 0 {
		m.lost[phone]--
		return "", fmt.Errorf("%w: response lost", ErrTransport)
	}
	return txID, nil
}

func (m *Mock) balance(phone string) decimal.Decimal {
	if b, ok := m.wallets[phone]; ok {
		return b
	}
	m.wallets[phone] = m.DefaultBalance
	return m.DefaultBalance
}

func (m *Mock) record(kind, phone string, amount decimal.Decimal, reference, txID string, err error) {
	t := Transaction{
		ID:        txID,
		Type:      kind,
		Phone:     phone,
		Amount:    amount,
		Reference: reference,
		Status:    "success",
		Timestamp: time.Now(),
	}
	if err != nil {
		t.Status = "failed"
		t.Reason = err.Error()
	}
	m.transactions = append(m.transactions, t)
}

// validPhone accepts Ghana numbers in international format.
func validPhone(phone string) bool {
	return strings.HasPrefix(phone, "+233") && len(phone) >= 13
}
