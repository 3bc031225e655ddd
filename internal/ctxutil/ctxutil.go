package ctxutil

import (
	"context"
	"time"
)

type key int

const (
	keyOpName key = iota
	keyRunID
)

// WithOp кладёт имя операции (generate, materialize, apply_closure...) для логов и Sentry.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) { return stringValue(ctx, keyOpName) }

// WithRunID кладёт id пакетного запуска: все записи одной материализации связаны им.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRunID, id)
}

func RunID(ctx context.Context) (string, bool) { return stringValue(ctx, keyRunID) }

func stringValue(ctx context.Context, k key) (string, bool) {
	s, ok := ctx.Value(k).(string)
	return s, ok && s != ""
}

var (
	// один запрос вне транзакции
	DefaultDBTimeout = 5 * time.Second
	// транзакция целиком: блокировки, запись занятий, пересчёт
	DefaultTxTimeout = 15 * time.Second
)

func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return capped(parent, DefaultDBTimeout)
}

func WithTxTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return capped(parent, DefaultTxTimeout)
}

// capped не продлевает дедлайн родителя: context.WithTimeout сам берёт более ранний.
func capped(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
