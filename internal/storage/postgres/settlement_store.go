package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type settlementStore struct {
	db *sql.DB
}

// NewSettlementStore создаёт PostgreSQL-реализацию SettlementStore.
// Commit выполняет весь расчёт одной транзакцией: создание заказа,
// передача владения позициями, удаление инвалидированных, пометка
// старой корзины и перенаправление клиента на новую пустую.
func NewSettlementStore(store *Store) domain.SettlementStore {
	return &settlementStore{db: store.DB()}
}

func (s *settlementStore) Commit(change domain.SettlementChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Старая корзина блокируется на время транзакции: два конкурентных
	// расчёта одной корзины сериализуются здесь, проигравший получает
	// ErrCartAlreadySettled.
	var settled bool
	err = tx.QueryRowContext(ctx, `
		SELECT settled FROM carts WHERE id = $1 FOR UPDATE
	`, change.Order.SourceCartID).Scan(&settled)
	if errors.Is(err, sql.ErrNoRows) {
		err = domain.ErrCartNotFound
		return err
	}
	if err != nil {
		err = fmt.Errorf("lock source cart: %w", err)
		return err
	}
	if settled {
		err = domain.ErrCartAlreadySettled
		return err
	}

	if err = insertOrderTx(ctx, tx, change.Order); err != nil {
		return err
	}

	for _, id := range change.AttachItemIDs {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE line_items
			SET cart_id = NULL,
			    order_id = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, change.Order.ID)
		if err != nil {
			err = fmt.Errorf("attach line item: %w", err)
			return err
		}
		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			err = fmt.Errorf("rows affected for item attach: %w", err)
			return err
		}
		if affected == 0 {
			err = domain.ErrLineItemNotFound
			return err
		}
	}

	for _, id := range change.DeleteItemIDs {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `DELETE FROM line_items WHERE id = $1`, id)
		if err != nil {
			err = fmt.Errorf("delete invalidated line item: %w", err)
			return err
		}
		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			err = fmt.Errorf("rows affected for item delete: %w", err)
			return err
		}
		if affected == 0 {
			err = domain.ErrLineItemNotFound
			return err
		}
	}

	now := time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		UPDATE carts
		SET settled = TRUE,
		    updated_at = $2
		WHERE id = $1
	`, change.Order.SourceCartID, now); err != nil {
		err = fmt.Errorf("mark cart settled: %w", err)
		return err
	}

	newCart := change.NewCart
	if newCart.CreatedAt.IsZero() {
		newCart.CreatedAt = now
	}
	if newCart.UpdatedAt.IsZero() {
		newCart.UpdatedAt = now
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO carts (id, client_id, settled, version, created_at, updated_at)
		VALUES ($1,$2,FALSE,$3,$4,$5)
	`, newCart.ID, newCart.ClientID, newCart.Version, newCart.CreatedAt, newCart.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrVersionConflict
		} else {
			err = fmt.Errorf("insert replacement cart: %w", err)
		}
		return err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE clients
		SET cart_id = $2,
		    order_ids = order_ids || to_jsonb($3::text),
		    updated_at = $4
		WHERE id = $1
	`, change.ClientID, newCart.ID, change.Order.ID, now)
	if err != nil {
		err = fmt.Errorf("redirect client cart: %w", err)
		return err
	}
	var affected int64
	affected, err = res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("rows affected for client redirect: %w", err)
		return err
	}
	if affected == 0 {
		err = domain.ErrClientNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit settlement: %w", err)
		return err
	}

	return nil
}

var _ domain.SettlementStore = (*settlementStore)(nil)
