package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"
)

// PaymentUpdate carries the fields the payment provider reports for a completed session.
type PaymentUpdate struct {
	Email             string
	Address           model.Address
	PaymentMethod     string
	ProviderPaymentID string
}

type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

const orderColumns = `id, items, email, address_name, address_street, address_city, address_state,
	address_postal_code, address_country, total, payment_status, delivery_status, payment_method,
	provider_payment_id, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, items, email, address_name, address_street, address_city, address_state,
			address_postal_code, address_country, total, payment_status, delivery_status, payment_method,
			provider_payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		o.ID, items, o.Email, o.Address.Name, o.Address.Street, o.Address.City, o.Address.State,
		o.Address.PostalCode, o.Address.Country, o.Total, string(o.PaymentStatus), o.DeliveryStatus,
		o.PaymentMethod, o.ProviderPaymentID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) UpdateDeliveryStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET delivery_status = $1, updated_at = $2 WHERE id = $3`,
		status, r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	return expectAffected(res)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectAffected(res)
}

// MarkPaid applies a completed payment to the order. Applying the same update twice
// leaves the row unchanged; the order.paid outbox event is only written on the
// pending -> paid transition, which is reported by the returned bool.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, upd PaymentUpdate) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	var total string
	err = tx.QueryRowContext(ctx,
		`SELECT payment_status, total::text FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status, &total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		return false, fmt.Errorf("lock order: %w", err)
	}

	now := r.now()
	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1,
			delivery_status = CASE WHEN payment_status = 'pending' THEN $2 ELSE delivery_status END,
			email = COALESCE(NULLIF($3, ''), email),
			address_name = $4, address_street = $5, address_city = $6, address_state = $7,
			address_postal_code = $8, address_country = $9, payment_method = $10,
			provider_payment_id = $11, updated_at = $12
		WHERE id = $13`,
		string(model.PaymentStatusPaid), model.DeliveryStatusPending, upd.Email,
		upd.Address.Name, upd.Address.Street, upd.Address.City, upd.Address.State,
		upd.Address.PostalCode, upd.Address.Country, upd.PaymentMethod,
		upd.ProviderPaymentID, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}

	transitioned := model.PaymentStatus(status) == model.PaymentStatusPending
	if transitioned {
		payload, err := json.Marshal(model.OrderPaid{
			OrderID:           id,
			Email:             upd.Email,
			Total:             total,
			PaymentMethod:     upd.PaymentMethod,
			ProviderPaymentID: upd.ProviderPaymentID,
			PaidAt:            now,
		})
		if err != nil {
			return false, fmt.Errorf("marshal event: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_events (order_id, type, payload, created_at) VALUES ($1, $2, $3, $4)`,
			id, model.EventOrderPaid, payload, now,
		)
		if err != nil {
			return false, fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return transitioned, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var o model.Order
	var items []byte
	var paymentStatus string
	err := row.Scan(&o.ID, &items, &o.Email, &o.Address.Name, &o.Address.Street, &o.Address.City,
		&o.Address.State, &o.Address.PostalCode, &o.Address.Country, &o.Total, &paymentStatus,
		&o.DeliveryStatus, &o.PaymentMethod, &o.ProviderPaymentID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return model.Order{}, fmt.Errorf("decode items: %w", err)
		}
	}
	return o, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
