// Package txn runs multi-document MongoDB transactions and detects
// deployments (standalone servers, some DocumentDB versions) that cannot.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotSupported is returned by Runner.Run when transactions are disabled
// or the server rejected them. Callers fall back to a non-transactional
// path.
var ErrNotSupported = errors.New("txn: transactions not supported")

// Runner executes functions inside a transaction.
//
// The first "not supported" response switches the runner off for the rest
// of the process lifetime.
type Runner struct {
	client   *mongo.Client
	log      *zap.Logger
	disabled atomic.Bool
}

// New returns a Runner. enabled=false (txn_mode=off) makes every Run return
// ErrNotSupported.
func New(client *mongo.Client, enabled bool, log *zap.Logger) *Runner {
	r := &Runner{client: client, log: log}
	if !enabled || client == nil {
		r.disabled.Store(true)
	}
	return r
}

// Enabled reports whether Run will attempt a transaction.
func (r *Runner) Enabled() bool { return !r.disabled.Load() }

// Run executes fn in a transaction. fn must use the context it is given so
// its operations join the session. fn's own errors abort the transaction
// and are returned as-is.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.disabled.Load() {
		return ErrNotSupported
	}
	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.disable(err)
			return ErrNotSupported
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.disable(err)
		return ErrNotSupported
	}
	return err
}

func (r *Runner) disable(err error) {
	if r.disabled.CompareAndSwap(false, true) && r.log != nil {
		r.log.Warn("transactions not supported by this deployment; using compensating writes",
			zap.Error(err))
	}
}

// Server error codes meaning the deployment cannot run the transaction:
// IllegalOperation (20), InvalidOptions (51) and
// OperationNotSupportedInTransaction (263).
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

var notSupportedKeywords = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err says transactions are unavailable.
// Besides the known server codes, a message mentioning at least two of the
// keywords counts.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if notSupportedCodes[ce.Code] {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range notSupportedKeywords {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
