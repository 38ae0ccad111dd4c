package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/mmeshcher/bankcore/internal/model"
)

var (
	bucketCustomers         = []byte("customers")
	bucketCustomerDocuments = []byte("customer_documents")
	bucketAccounts          = []byte("accounts")
	bucketMovements         = []byte("movements")
	bucketAccountMovements  = []byte("account_movements")
	bucketGarnishments      = []byte("garnishments")
	bucketGarnishmentOrders = []byte("garnishment_orders")
	bucketExchangeRates     = []byte("exchange_rates")
	bucketSequences         = []byte("sequences")
)

var allBuckets = [][]byte{
	bucketCustomers,
	bucketCustomerDocuments,
	bucketAccounts,
	bucketMovements,
	bucketAccountMovements,
	bucketGarnishments,
	bucketGarnishmentOrders,
	bucketExchangeRates,
	bucketSequences,
}

const rateKeyLayout = "2006-01-02"

// BoltStore хранит данные во встраиваемой BoltDB.
// Единственный пишущий процесс BoltDB даёт сериализуемую изоляцию без повторов.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore открывает (или создаёт) файл базы и все необходимые бакеты.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close освобождает блокировку файла базы.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// WithTx выполняет fn в пишущей транзакции. Ошибка fn откатывает все изменения.
func (s *BoltStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// WithReadTx выполняет fn в читающей транзакции.
func (s *BoltStore) WithReadTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func (t *boltTx) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	return t.tx.Bucket(bucket).Put(key, data)
}

func (t *boltTx) get(bucket, key []byte, v any) (bool, error) {
	data := t.tx.Bucket(bucket).Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", bucket, err)
	}
	return true, nil
}

func (t *boltTx) NextSequence(_ context.Context, name string) (int64, error) {
	b := t.tx.Bucket(bucketSequences)
	var next int64 = 1
	if v := b.Get([]byte(name)); v != nil {
		next = btoi(v) + 1
	}
	if err := b.Put([]byte(name), itob(next)); err != nil {
		return 0, fmt.Errorf("update sequence %s: %w", name, err)
	}
	return next, nil
}

func (t *boltTx) CreateCustomer(_ context.Context, c *model.Customer) (int64, error) {
	docs := t.tx.Bucket(bucketCustomerDocuments)
	docKey := []byte(documentKey(c.DocumentType, c.DocumentNumber))
	if docs.Get(docKey) != nil {
		return 0, model.ErrDuplicateDocument
	}

	seq, err := t.tx.Bucket(bucketCustomers).NextSequence()
	if err != nil {
		return 0, fmt.Errorf("next customer id: %w", err)
	}
	c.ID = int64(seq)

	if err := t.put(bucketCustomers, itob(c.ID), c); err != nil {
		return 0, err
	}
	if err := docs.Put(docKey, itob(c.ID)); err != nil {
		return 0, fmt.Errorf("index customer document: %w", err)
	}
	return c.ID, nil
}

func (t *boltTx) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	ok, err := t.get(bucketCustomers, itob(id), &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	return &c, nil
}

func (t *boltTx) GetCustomerByDocument(ctx context.Context, docType model.DocumentType, number string) (*model.Customer, error) {
	id := t.tx.Bucket(bucketCustomerDocuments).Get([]byte(documentKey(docType, number)))
	if id == nil {
		return nil, model.ErrCustomerNotFound
	}
	return t.GetCustomer(ctx, btoi(id))
}

func (t *boltTx) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	if _, err := t.GetCustomer(ctx, c.ID); err != nil {
		return err
	}
	return t.put(bucketCustomers, itob(c.ID), c)
}

func (t *boltTx) CreateAccount(_ context.Context, a *model.Account) error {
	if t.tx.Bucket(bucketAccounts).Get([]byte(a.Number)) != nil {
		return model.ErrDuplicateAccountNumber
	}
	return t.put(bucketAccounts, []byte(a.Number), a)
}

func (t *boltTx) GetAccount(_ context.Context, number string) (*model.Account, error) {
	var a model.Account
	ok, err := t.get(bucketAccounts, []byte(number), &a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &a, nil
}

func (t *boltTx) LockAccount(ctx context.Context, number string) (*model.Account, error) {
	return t.GetAccount(ctx, number)
}

func (t *boltTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	if _, err := t.GetAccount(ctx, a.Number); err != nil {
		return err
	}
	return t.put(bucketAccounts, []byte(a.Number), a)
}

func (t *boltTx) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error) {
	all, err := t.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]model.Account, 0)
	for _, a := range all {
		if a.CustomerID == customerID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (t *boltTx) ListAccounts(_ context.Context) ([]model.Account, error) {
	res := make([]model.Account, 0)
	err := t.tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
		var a model.Account
		if err := json.Unmarshal(v, &a); err != nil {
			return fmt.Errorf("unmarshal account %s: %w", k, err)
		}
		res = append(res, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t *boltTx) AppendMovement(_ context.Context, m *model.Movement) (int64, error) {
	seq, err := t.tx.Bucket(bucketMovements).NextSequence()
	if err != nil {
		return 0, fmt.Errorf("next movement id: %w", err)
	}
	m.ID = int64(seq)

	if err := t.put(bucketMovements, itob(m.ID), m); err != nil {
		return 0, err
	}

	idx := append([]byte(m.AccountNumber+"/"), itob(m.ID)...)
	if err := t.tx.Bucket(bucketAccountMovements).Put(idx, itob(m.ID)); err != nil {
		return 0, fmt.Errorf("index movement: %w", err)
	}
	return m.ID, nil
}

func (t *boltTx) ListMovements(_ context.Context, accountNumber string) ([]model.Movement, error) {
	prefix := []byte(accountNumber + "/")
	movements := t.tx.Bucket(bucketMovements)

	res := make([]model.Movement, 0)
	c := t.tx.Bucket(bucketAccountMovements).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		id := k[len(prefix):]
		data := movements.Get(id)
		if data == nil {
			return nil, fmt.Errorf("movement %d indexed but missing", btoi(id))
		}
		var m model.Movement
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal movement: %w", err)
		}
		res = append(res, m)
	}

	sortMovements(res)
	return res, nil
}

func (t *boltTx) ListMovementsBetween(_ context.Context, from, to time.Time) ([]model.Movement, error) {
	res := make([]model.Movement, 0)
	err := t.tx.Bucket(bucketMovements).ForEach(func(_, v []byte) error {
		var m model.Movement
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("unmarshal movement: %w", err)
		}
		if !m.CreatedAt.Before(from) && m.CreatedAt.Before(to) {
			res = append(res, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortMovements(res)
	return res, nil
}

func sortMovements(ms []model.Movement) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func (t *boltTx) CreateGarnishment(_ context.Context, g *model.Garnishment) (int64, error) {
	orders := t.tx.Bucket(bucketGarnishmentOrders)
	if orders.Get([]byte(g.OrderNumber)) != nil {
		return 0, model.ErrDuplicateOrder
	}

	seq, err := t.tx.Bucket(bucketGarnishments).NextSequence()
	if err != nil {
		return 0, fmt.Errorf("next garnishment id: %w", err)
	}
	g.ID = int64(seq)

	if err := t.put(bucketGarnishments, itob(g.ID), g); err != nil {
		return 0, err
	}
	if err := orders.Put([]byte(g.OrderNumber), itob(g.ID)); err != nil {
		return 0, fmt.Errorf("index garnishment order: %w", err)
	}
	return g.ID, nil
}

func (t *boltTx) LockGarnishment(_ context.Context, id int64) (*model.Garnishment, error) {
	var g model.Garnishment
	ok, err := t.get(bucketGarnishments, itob(id), &g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrGarnishmentNotFound
	}
	return &g, nil
}

func (t *boltTx) UpdateGarnishment(ctx context.Context, g *model.Garnishment) error {
	if _, err := t.LockGarnishment(ctx, g.ID); err != nil {
		return err
	}
	return t.put(bucketGarnishments, itob(g.ID), g)
}

func (t *boltTx) ListGarnishments(_ context.Context, accountNumber string, activeOnly bool) ([]model.Garnishment, error) {
	res := make([]model.Garnishment, 0)
	err := t.tx.Bucket(bucketGarnishments).ForEach(func(_, v []byte) error {
		var g model.Garnishment
		if err := json.Unmarshal(v, &g); err != nil {
			return fmt.Errorf("unmarshal garnishment: %w", err)
		}
		if g.AccountNumber != accountNumber || (activeOnly && !g.Active) {
			return nil
		}
		res = append(res, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t *boltTx) SaveExchangeRate(_ context.Context, r *model.ExchangeRate) error {
	return t.put(bucketExchangeRates, []byte(r.Date.Format(rateKeyLayout)), r)
}

func (t *boltTx) GetExchangeRate(_ context.Context, day time.Time) (*model.ExchangeRate, error) {
	var r model.ExchangeRate
	ok, err := t.get(bucketExchangeRates, []byte(day.Format(rateKeyLayout)), &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrRateNotFound
	}
	return &r, nil
}

var _ Tx = (*boltTx)(nil)

