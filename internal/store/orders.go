package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
)

// payloadColumns OrderPayload と同じ順序の列
var payloadColumns = []string{
	"order_date", "delivery_date", "delivery_time",
	"customer_last_name", "customer_first_name", "customer_last_name_kana", "customer_first_name_kana",
	"customer_company", "customer_email", "customer_phone",
	"customer_zip_code", "customer_prefecture", "customer_city", "customer_address", "customer_building",
	"recipient_last_name", "recipient_first_name", "recipient_last_name_kana", "recipient_first_name_kana",
	"recipient_zip_code", "recipient_prefecture", "recipient_city", "recipient_address", "recipient_building",
	"recipient_phone",
	"product_code", "product_name", "unit_price", "quantity", "payment_method",
	"order_remarks",
}

func payloadValues(p *model.OrderPayload) []any {
	return []any{
		p.OrderDate, p.DeliveryDate, p.DeliveryTime,
		p.CustomerLastName, p.CustomerFirstName, p.CustomerLastNameKana, p.CustomerFirstNameKana,
		p.CustomerCompany, p.CustomerEmail, p.CustomerPhone,
		p.CustomerZipCode, p.CustomerPrefecture, p.CustomerCity, p.CustomerAddress, p.CustomerBuilding,
		p.RecipientLastName, p.RecipientFirstName, p.RecipientLastNameKana, p.RecipientFirstNameKana,
		p.RecipientZipCode, p.RecipientPrefecture, p.RecipientCity, p.RecipientAddress, p.RecipientBuilding,
		p.RecipientPhone,
		p.ProductCode, p.ProductName, p.UnitPrice, p.Quantity, p.PaymentMethod,
		p.OrderRemarks,
	}
}

func payloadDest(p *model.OrderPayload) []any {
	return []any{
		&p.OrderDate, &p.DeliveryDate, &p.DeliveryTime,
		&p.CustomerLastName, &p.CustomerFirstName, &p.CustomerLastNameKana, &p.CustomerFirstNameKana,
		&p.CustomerCompany, &p.CustomerEmail, &p.CustomerPhone,
		&p.CustomerZipCode, &p.CustomerPrefecture, &p.CustomerCity, &p.CustomerAddress, &p.CustomerBuilding,
		&p.RecipientLastName, &p.RecipientFirstName, &p.RecipientLastNameKana, &p.RecipientFirstNameKana,
		&p.RecipientZipCode, &p.RecipientPrefecture, &p.RecipientCity, &p.RecipientAddress, &p.RecipientBuilding,
		&p.RecipientPhone,
		&p.ProductCode, &p.ProductName, &p.UnitPrice, &p.Quantity, &p.PaymentMethod,
		&p.OrderRemarks,
	}
}

var (
	selectOrderSQL = "SELECT order_key, order_number, status, " + strings.Join(payloadColumns, ", ") +
		", created_at, updated_at FROM orders"

	insertOrderSQL = "INSERT INTO orders (order_key, order_number, status, " + strings.Join(payloadColumns, ", ") +
		", created_at, updated_at) VALUES (" + placeholders(len(payloadColumns)+5) + ")"

	updateOrderSQL = "UPDATE orders SET order_number = ?, status = ?, " + strings.Join(payloadColumns, " = ?, ") +
		" = ?, updated_at = ? WHERE order_key = ?"
)

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	dest := []any{&o.OrderKey, &o.OrderNumber, &o.Status}
	dest = append(dest, payloadDest(&o.OrderPayload)...)
	dest = append(dest, &o.CreatedAt, &o.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrders 注文一覧（登録順）
func (s *Store) GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := selectOrderSQL + " WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if text := strings.TrimSpace(filter.SearchText); text != "" {
		like := "%" + text + "%"
		query += ` AND (order_number LIKE ?
			OR customer_last_name || customer_first_name LIKE ?
			OR recipient_last_name || recipient_first_name LIKE ?
			OR recipient_phone LIKE ?
			OR recipient_address LIKE ?)`
		args = append(args, like, like, like, like, like)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// GetOrder 注文を1件取得する
func (s *Store) GetOrder(ctx context.Context, orderKey string) (*model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrderSQL+" WHERE order_key = ?", orderKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orderstore.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// CreateOrder 注文を登録する。注文番号が空なら採番し、ステータスは未処理
func (s *Store) CreateOrder(ctx context.Context, payload model.OrderPayload) (*model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key, err := s.insertOrder(ctx, tx, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetOrder(ctx, key)
}

// UpdateOrder 注文を更新する。注文番号・ステータスが空なら現在の値を残す
func (s *Store) UpdateOrder(ctx context.Context, orderKey string, payload model.OrderPayload, status model.OrderStatus) (*model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := s.updateOrder(ctx, tx, orderKey, payload, status)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, orderstore.ErrOrderNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetOrder(ctx, orderKey)
}

// DeleteOrder 注文を削除する
func (s *Store) DeleteOrder(ctx context.Context, orderKey string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE order_key = ?", orderKey)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return orderstore.ErrOrderNotFound
	}
	return nil
}

// BatchImport 追加・更新・削除を1トランザクションで適用し、実際に反映した件数を返す
// 存在しない注文番号の更新・削除は件数に含めない。
func (s *Store) BatchImport(ctx context.Context, req model.BatchRequest) (model.BatchResult, error) {
	var result model.BatchResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range req.Additions {
		if _, err := s.insertOrder(ctx, tx, p); err != nil {
			return model.BatchResult{}, err
		}
		result.Added++
	}

	for _, u := range req.Updates {
		n, err := s.updateOrder(ctx, tx, u.OrderKey, u.OrderData, "")
		if err != nil {
			return model.BatchResult{}, err
		}
		result.Updated += int(n)
	}

	if len(req.Deletions) > 0 {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM orders WHERE order_key = ?")
		if err != nil {
			return model.BatchResult{}, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, key := range req.Deletions {
			res, err := stmt.ExecContext(ctx, key)
			if err != nil {
				return model.BatchResult{}, fmt.Errorf("failed to delete order %s: %w", key, err)
			}
			n, _ := res.RowsAffected()
			result.Deleted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.BatchResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// GetStatistics ステータス別の件数
func (s *Store) GetStatistics(ctx context.Context) (model.Statistics, error) {
	var st model.Statistics

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return st, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("failed to scan statistics: %w", err)
		}
		st.Total += n
		switch model.OrderStatus(status) {
		case model.StatusNew:
			st.New = n
		case model.StatusProcessing:
			st.Processing = n
		case model.StatusShipped:
			st.Shipped = n
		case model.StatusCancelled:
			st.Cancelled = n
		}
	}
	return st, rows.Err()
}

func (s *Store) insertOrder(ctx context.Context, tx *sql.Tx, p model.OrderPayload) (string, error) {
	if p.OrderNumber == "" {
		number, err := s.nextOrderNumber(ctx, tx)
		if err != nil {
			return "", err
		}
		p.OrderNumber = number
	}

	key := uuid.NewString()
	now := s.now().UTC()

	args := []any{key, p.OrderNumber, string(model.StatusNew)}
	args = append(args, payloadValues(&p)...)
	args = append(args, now, now)

	if _, err := tx.ExecContext(ctx, insertOrderSQL, args...); err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}
	return key, nil
}

func (s *Store) updateOrder(ctx context.Context, tx *sql.Tx, orderKey string, p model.OrderPayload, status model.OrderStatus) (int64, error) {
	var currentNumber, currentStatus string
	err := tx.QueryRowContext(ctx, "SELECT order_number, status FROM orders WHERE order_key = ?", orderKey).
		Scan(&currentNumber, &currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load order %s: %w", orderKey, err)
	}

	if p.OrderNumber == "" {
		p.OrderNumber = currentNumber
	}
	if status == "" {
		status = model.OrderStatus(currentStatus)
	}

	args := []any{p.OrderNumber, string(status)}
	args = append(args, payloadValues(&p)...)
	args = append(args, s.now().UTC(), orderKey)

	res, err := tx.ExecContext(ctx, updateOrderSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update order %s: %w", orderKey, err)
	}
	return res.RowsAffected()
}
