package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrCustomerNotFound is returned when no customer matches an id, code, or
// the legacy name+city fallback.
var ErrCustomerNotFound = errors.New("customer not found")

// CreditLedger applies signed amount deltas to customer balances. Deltas
// always land on the single customer record tied to the order, never spread
// across a firm group; only the displayed balance is group-wide.
type CreditLedger struct {
	pool *pgxpool.Pool
}

// NewCreditLedger constructs the customer credit ledger.
func NewCreditLedger(pool *pgxpool.Pool) *CreditLedger {
	return &CreditLedger{pool: pool}
}

// ApplyDeltaTx locks the customer row, applies the signed amount, and returns
// the new balance. Negative deltas record money the customer owes.
func (l *CreditLedger) ApplyDeltaTx(ctx context.Context, tx pgx.Tx, customerID int, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT balance FROM customers WHERE id = $1 FOR UPDATE",
		customerID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: id %d", ErrCustomerNotFound, customerID)
		}
		return decimal.Zero, fmt.Errorf("failed to lock customer %d: %w", customerID, err)
	}

	newBalance := balance.Add(delta)
	_, err = tx.Exec(ctx, "UPDATE customers SET balance = $1 WHERE id = $2", newBalance, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update customer %d balance: %w", customerID, err)
	}
	return newBalance, nil
}

// Resolve finds a customer by numeric id or code first, then falls back to a
// name + city text match. The fallback exists for migration-era records that
// predate the customer foreign key on orders; new data never needs it.
func (l *CreditLedger) Resolve(ctx context.Context, ref, city string) (*Customer, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if c, err := l.GetCustomer(ctx, id); err == nil {
			return c, nil
		}
	}

	c, err := scanCustomer(l.pool.QueryRow(ctx,
		customerSelect+" WHERE code = $1", ref))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve customer %q: %w", ref, err)
	}

	c, err = scanCustomer(l.pool.QueryRow(ctx,
		customerSelect+" WHERE LOWER(name) = LOWER($1) AND LOWER(city) = LOWER($2) LIMIT 1", ref, city))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q (%s)", ErrCustomerNotFound, ref, city)
		}
		return nil, fmt.Errorf("failed to resolve customer %q by name/city: %w", ref, err)
	}
	return c, nil
}

const customerSelect = `
	SELECT id, code, name, city, address, phone, firm_group_id, balance, created_at
	FROM customers`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.City, &c.Address, &c.Phone,
		&c.FirmGroupID, &c.Balance, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer fetches one customer by id.
func (l *CreditLedger) GetCustomer(ctx context.Context, customerID int) (*Customer, error) {
	c, err := scanCustomer(l.pool.QueryRow(ctx, customerSelect+" WHERE id = $1", customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return c, nil
}

// ListCustomers returns all customers ordered by code.
func (l *CreditLedger) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := l.pool.Query(ctx, customerSelect+" ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.City, &c.Address, &c.Phone,
			&c.FirmGroupID, &c.Balance, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// DisplayedBalance returns the balance a viewer sees for a customer: the sum
// over all firm-group members when the customer belongs to a group, otherwise
// the customer's own balance. The underlying per-customer balances stay
// untouched.
func (l *CreditLedger) DisplayedBalance(ctx context.Context, customerID int) (decimal.Decimal, error) {
	c, err := l.GetCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if c.FirmGroupID == nil {
		return c.Balance, nil
	}

	var sum decimal.Decimal
	err = l.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(balance), 0) FROM customers WHERE firm_group_id = $1",
		*c.FirmGroupID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum firm group %d balances: %w", *c.FirmGroupID, err)
	}
	return sum, nil
}

// CreateCustomer inserts a new customer record.
func (l *CreditLedger) CreateCustomer(ctx context.Context, code, name, city, address, phone string, firmGroupID *int) (*Customer, error) {
	c, err := scanCustomer(l.pool.QueryRow(ctx, `
		INSERT INTO customers (code, name, city, address, phone, firm_group_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, code, name, city, address, phone, firm_group_id, balance, created_at
	`, code, name, city, address, phone, firmGroupID))
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

// RecordTransaction appends a pure ledger entry (payment or return credit) and
// applies its amount to the customer balance in one transaction.
func (l *CreditLedger) RecordTransaction(ctx context.Context, customerID int, kind string, amount decimal.Decimal, remark string) (*LedgerTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transaction amount must be positive, got %s", amount)
	}
	if kind != "PAYMENT" && kind != "RETURN" {
		return nil, fmt.Errorf("unknown transaction kind %q", kind)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := l.ApplyDeltaTx(ctx, tx, customerID, amount); err != nil {
		return nil, err
	}

	var t LedgerTransaction
	err = tx.QueryRow(ctx, `
		INSERT INTO ledger_transactions (customer_id, kind, amount, remark)
		VALUES ($1, $2, $3, $4)
		RETURNING id, customer_id, kind, amount, remark, created_at
	`, customerID, kind, amount, remark).Scan(
		&t.ID, &t.CustomerID, &t.Kind, &t.Amount, &t.Remark, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return &t, nil
}
