package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type txKey struct{}

var errTxDone = errors.New("transaction already finished")

// Tx is a gorm transaction carried in a context. Every store method called
// with that context runs inside it.
type Tx struct {
	id  int64
	db  *gorm.DB
	log logrus.FieldLogger
}

// InTransaction runs fn with a context bound to a transaction. The
// transaction commits when fn returns nil and rolls back otherwise. When ctx
// already carries a transaction fn joins it and the outer caller decides.
func InTransaction(ctx context.Context, s Store, fn func(ctx context.Context) error) error {
	if FromContext(ctx) != nil {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(txCtx); err != nil {
		if _, rerr := Rollback(txCtx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	if _, err := Commit(txCtx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok || tx == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, txKey{}, nil), tx.finish(true)
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok || tx == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, txKey{}, nil), tx.finish(false)
}

// FromContext returns the open transaction carried by ctx, or nil.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*Tx); ok && tx != nil {
		return tx.db
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) (context.Context, error) {
	if FromContext(ctx) != nil {
		return ctx, nil
	}

	begun := db.Session(&gorm.Session{Context: ctx}).Begin()
	if begun.Error != nil {
		return ctx, begun.Error
	}

	tx := &Tx{db: begun, log: log}
	// txid_current() is postgres only and purely informational
	if db.Dialector.Name() == "postgres" {
		var row struct{ ID int64 }
		begun.Raw("select txid_current() as id").Scan(&row)
		tx.id = row.ID
	}

	return context.WithValue(ctx, txKey{}, tx), nil
}

func (t *Tx) finish(commit bool) error {
	if t.db == nil {
		return errTxDone
	}

	action, result := "rollback", t.db.Rollback
	if commit {
		action, result = "commit", t.db.Commit
	}

	if err := result().Error; err != nil {
		t.log.WithField("tx", t.id).Errorf("%s failed: %v", action, err)
		return err
	}
	t.db = nil
	t.log.WithField("tx", t.id).Debugf("%s done", action)
	return nil
}

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
