package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/bankcore/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresStore создаёт пул соединений и инициализирует схему БД через миграции.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// WithTx выполняет fn в сериализуемой транзакции. Конфликты сериализации и взаимные
// блокировки повторяются ограниченное число раз, затем возвращается ErrConcurrencyConflict.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.withRetry(ctx, func() error {
		return s.runTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
	})
}

// WithReadTx выполняет fn в читающей транзакции с согласованным снимком.
func (s *PostgresStore) WithReadTx(ctx context.Context, fn func(Tx) error) error {
	return s.withRetry(ctx, func() error {
		return s.runTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
	})
}

func (s *PostgresStore) runTx(ctx context.Context, opts pgx.TxOptions, fn func(Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(s.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) {
			return err
		}

		if i < len(s.delays) {
			timer := time.NewTimer(s.delays[i])
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	if isSerializationConflict(err) {
		return fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
	}
	return err
}

func isRetryable(err error) bool {
	return isSerializationConflict(err) || isConnectionError(err)
}

func isSerializationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return false
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

type rowScanner interface {
	Scan(dest ...any) error
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) NextSequence(ctx context.Context, name string) (int64, error) {
	var v int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO sequences (name, value) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`,
		name,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return v, nil
}

const customerColumns = `id, code, kind, document_type, document_number,
	given_names, first_surname, second_surname, birth_date,
	legal_name, trade_name, legal_representative,
	address, phone, email, identity_verified, active, created_by, created_at, updated_at`

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var (
		c         model.Customer
		kind, doc string
	)
	err := row.Scan(
		&c.ID, &c.Code, &kind, &doc, &c.DocumentNumber,
		&c.GivenNames, &c.FirstSurname, &c.SecondSurname, &c.BirthDate,
		&c.LegalName, &c.TradeName, &c.LegalRepresentative,
		&c.Address, &c.Phone, &c.Email, &c.IdentityVerified, &c.Active, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = model.CustomerKind(kind)
	c.DocumentType = model.DocumentType(doc)
	return &c, nil
}

func (t *pgTx) CreateCustomer(ctx context.Context, c *model.Customer) (int64, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO customers (code, kind, document_type, document_number,
			given_names, first_surname, second_surname, birth_date,
			legal_name, trade_name, legal_representative,
			address, phone, email, identity_verified, active, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		c.Code, string(c.Kind), string(c.DocumentType), c.DocumentNumber,
		c.GivenNames, c.FirstSurname, c.SecondSurname, c.BirthDate,
		c.LegalName, c.TradeName, c.LegalRepresentative,
		c.Address, c.Phone, c.Email, c.IdentityVerified, c.Active, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err, "customers_document_type_document_number_key") {
			return 0, model.ErrDuplicateDocument
		}
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return c.ID, nil
}

func (t *pgTx) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (t *pgTx) GetCustomerByDocument(ctx context.Context, docType model.DocumentType, number string) (*model.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE document_type = $1 AND document_number = $2`,
		string(docType), number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by document: %w", err)
	}
	return c, nil
}

func (t *pgTx) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE customers SET
			given_names = $2, first_surname = $3, second_surname = $4, birth_date = $5,
			legal_name = $6, trade_name = $7, legal_representative = $8,
			address = $9, phone = $10, email = $11, identity_verified = $12, active = $13, updated_at = $14
		 WHERE id = $1`,
		c.ID, c.GivenNames, c.FirstSurname, c.SecondSurname, c.BirthDate,
		c.LegalName, c.TradeName, c.LegalRepresentative,
		c.Address, c.Phone, c.Email, c.IdentityVerified, c.Active, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCustomerNotFound
	}
	return nil
}

const accountColumns = `number, customer_id, type, currency, balance, status, active,
	garnished_amount, full_garnish, overdraft_limit,
	principal, term_months, monthly_rate, maturity_date, renewed_from,
	opened_by, opened_at, last_movement_at, closed_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a                     model.Account
		typ, currency, status string
	)
	err := row.Scan(
		&a.Number, &a.CustomerID, &typ, &currency, &a.Balance, &status, &a.Active,
		&a.GarnishedAmount, &a.FullGarnish, &a.OverdraftLimit,
		&a.Principal, &a.TermMonths, &a.MonthlyRate, &a.MaturityDate, &a.RenewedFrom,
		&a.OpenedBy, &a.OpenedAt, &a.LastMovementAt, &a.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = model.AccountType(typ)
	a.Currency = model.Currency(currency)
	a.Status = model.AccountStatus(status)
	return &a, nil
}

func (t *pgTx) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		a.Number, a.CustomerID, string(a.Type), string(a.Currency), a.Balance, string(a.Status), a.Active,
		a.GarnishedAmount, a.FullGarnish, a.OverdraftLimit,
		a.Principal, a.TermMonths, a.MonthlyRate, a.MaturityDate, a.RenewedFrom,
		a.OpenedBy, a.OpenedAt, a.LastMovementAt, a.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "accounts_pkey") {
			return model.ErrDuplicateAccountNumber
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (t *pgTx) getAccount(ctx context.Context, number, suffix string) (*model.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE number = $1`+suffix, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (t *pgTx) GetAccount(ctx context.Context, number string) (*model.Account, error) {
	return t.getAccount(ctx, number, "")
}

func (t *pgTx) LockAccount(ctx context.Context, number string) (*model.Account, error) {
	return t.getAccount(ctx, number, " FOR UPDATE")
}

func (t *pgTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET
			balance = $2, status = $3, active = $4,
			garnished_amount = $5, full_garnish = $6, overdraft_limit = $7,
			last_movement_at = $8, closed_at = $9
		 WHERE number = $1`,
		a.Number, a.Balance, string(a.Status), a.Active,
		a.GarnishedAmount, a.FullGarnish, a.OverdraftLimit,
		a.LastMovementAt, a.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) listAccounts(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	res := make([]model.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		res = append(res, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func (t *pgTx) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error) {
	return t.listAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY opened_at, number`,
		customerID)
}

func (t *pgTx) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return t.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY number`)
}

const movementColumns = `id, transaction_id, account_number, kind, amount, balance_before, balance_after,
	description, counterpart_account, exchange_rate,
	requires_authorization, authorization_code, funds_origin, created_by, created_at`

func (t *pgTx) AppendMovement(ctx context.Context, m *model.Movement) (int64, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO movements (transaction_id, account_number, kind, amount, balance_before, balance_after,
			description, counterpart_account, exchange_rate,
			requires_authorization, authorization_code, funds_origin, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		m.TransactionID, m.AccountNumber, string(m.Kind), m.Amount, m.BalanceBefore, m.BalanceAfter,
		m.Description, m.CounterpartAccount, m.ExchangeRate,
		m.RequiresAuthorization, m.AuthorizationCode, m.FundsOrigin, m.CreatedBy, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return 0, fmt.Errorf("insert movement: %w", err)
	}
	return m.ID, nil
}

func (t *pgTx) listMovements(ctx context.Context, query string, args ...any) ([]model.Movement, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	defer rows.Close()

	res := make([]model.Movement, 0)
	for rows.Next() {
		var (
			m    model.Movement
			kind string
		)
		err := rows.Scan(
			&m.ID, &m.TransactionID, &m.AccountNumber, &kind, &m.Amount, &m.BalanceBefore, &m.BalanceAfter,
			&m.Description, &m.CounterpartAccount, &m.ExchangeRate,
			&m.RequiresAuthorization, &m.AuthorizationCode, &m.FundsOrigin, &m.CreatedBy, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = model.MovementKind(kind)
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func (t *pgTx) ListMovements(ctx context.Context, accountNumber string) ([]model.Movement, error) {
	return t.listMovements(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE account_number = $1 ORDER BY created_at, id`,
		accountNumber)
}

func (t *pgTx) ListMovementsBetween(ctx context.Context, from, to time.Time) ([]model.Movement, error) {
	return t.listMovements(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at, id`,
		from, to)
}

const garnishmentColumns = `id, account_number, order_number, authority, amount, full_garnish, active,
	notes, created_by, created_at, released_by, released_at`

func scanGarnishment(row rowScanner) (*model.Garnishment, error) {
	var g model.Garnishment
	err := row.Scan(
		&g.ID, &g.AccountNumber, &g.OrderNumber, &g.Authority, &g.Amount, &g.Full, &g.Active,
		&g.Notes, &g.CreatedBy, &g.CreatedAt, &g.ReleasedBy, &g.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *pgTx) CreateGarnishment(ctx context.Context, g *model.Garnishment) (int64, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO garnishments (account_number, order_number, authority, amount, full_garnish, active,
			notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		g.AccountNumber, g.OrderNumber, g.Authority, g.Amount, g.Full, g.Active,
		g.Notes, g.CreatedBy, g.CreatedAt,
	).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err, "garnishments_order_number_key") {
			return 0, model.ErrDuplicateOrder
		}
		return 0, fmt.Errorf("insert garnishment: %w", err)
	}
	return g.ID, nil
}

func (t *pgTx) LockGarnishment(ctx context.Context, id int64) (*model.Garnishment, error) {
	g, err := scanGarnishment(t.tx.QueryRow(ctx,
		`SELECT `+garnishmentColumns+` FROM garnishments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrGarnishmentNotFound
		}
		return nil, fmt.Errorf("get garnishment: %w", err)
	}
	return g, nil
}

func (t *pgTx) UpdateGarnishment(ctx context.Context, g *model.Garnishment) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE garnishments SET active = $2, released_by = $3, released_at = $4 WHERE id = $1`,
		g.ID, g.Active, g.ReleasedBy, g.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("update garnishment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGarnishmentNotFound
	}
	return nil
}

func (t *pgTx) ListGarnishments(ctx context.Context, accountNumber string, activeOnly bool) ([]model.Garnishment, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+garnishmentColumns+` FROM garnishments
		 WHERE account_number = $1 AND (active OR NOT $2)
		 ORDER BY created_at, id`,
		accountNumber, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select garnishments: %w", err)
	}
	defer rows.Close()

	res := make([]model.Garnishment, 0)
	for rows.Next() {
		g, err := scanGarnishment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan garnishment: %w", err)
		}
		res = append(res, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func (t *pgTx) SaveExchangeRate(ctx context.Context, r *model.ExchangeRate) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO exchange_rates (date, buy, sell, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (date) DO UPDATE SET
			buy = EXCLUDED.buy, sell = EXCLUDED.sell,
			registered_by = EXCLUDED.registered_by, registered_at = EXCLUDED.registered_at`,
		r.Date, r.Buy, r.Sell, r.RegisteredBy, r.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

func (t *pgTx) GetExchangeRate(ctx context.Context, day time.Time) (*model.ExchangeRate, error) {
	var r model.ExchangeRate
	err := t.tx.QueryRow(ctx,
		`SELECT date, buy, sell, registered_by, registered_at FROM exchange_rates WHERE date = $1`,
		day,
	).Scan(&r.Date, &r.Buy, &r.Sell, &r.RegisteredBy, &r.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRateNotFound
		}
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	return &r, nil
}

var _ Tx = (*pgTx)(nil)
