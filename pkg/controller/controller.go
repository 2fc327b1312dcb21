package controller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/notify"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// Controller wires together every component a Write needs to execute:
// storage, the in-memory graph mirror, the authorizer, the token registry,
// and the notification broker. It owns none of their lifecycles beyond
// holding references — pkg/controller never opens a store or starts a
// broker itself.
type Controller struct {
	Store    *storage.Store
	Graph    *graph.Graph
	Authz    *authz.Authorizer
	Tokens   *token.Handler
	Registry *token.Registry
	Keyring  *token.Keyring
	Broker   *notify.Broker
}

// New builds a Controller from already-initialized components.
func New(store *storage.Store, g *graph.Graph, az *authz.Authorizer, tokens *token.Handler, registry *token.Registry, keyring *token.Keyring, broker *notify.Broker) *Controller {
	return &Controller{Store: store, Graph: g, Authz: az, Tokens: tokens, Registry: registry, Keyring: keyring, Broker: broker}
}

// Write is one serializable mutation request. Op names the
// operation in metrics labels; EventKind names the notification it produces on
// success; Execute performs the mutation inside txn and returns the
// response to serialize back to the caller plus the node ids the produced
// event should name as touched.
type Write interface {
	Op() string
	EventKind() types.EventKind
	Execute(ctx context.Context, txn *storage.Txn, c *Controller) (response any, touched []types.ID, err error)
}

// Transaction applies w exactly once per distinct txID: a tx-id already present in the transaction log short-
// circuits to the previously recorded response without re-running Execute
// or producing a second event. A failure inside Execute rolls back the
// whole storage transaction — nothing is persisted, including the tx-id
// itself, so a retried call with the same txID runs for real. The event row
// is written inside that same storage transaction, so it either commits with
// the mutation or not at all; broker delivery (notify.EmitAfterCommit) only
// runs once Store.Update has returned successfully, in a fresh read-only
// Txn over the now-committed state, so a subscriber is never notified of a
// write that a later commit failure rolled back.
func (c *Controller) Transaction(ctx context.Context, w Write, txID string, now time.Time) (json.RawMessage, error) {
	if txID == "" {
		return nil, invalidArgument("tx-id is required")
	}

	storeTimer := metrics.NewTimer()
	txnTimer := metrics.NewTimer()
	replayed := false

	var result json.RawMessage
	var committed *types.Event
	err := c.Store.Update(func(txn *storage.Txn) error {
		rec, seen, err := txn.GetTransactionResult(txID)
		if err != nil {
			return internalErr(txID, err)
		}
		if seen {
			replayed = true
			result = rec.Response
			return nil
		}

		response, touched, werr := w.Execute(ctx, txn, c)
		if werr != nil {
			var cerr *Error
			if errors.As(werr, &cerr) {
				return cerr
			}
			return translateStorageErr(txID, werr)
		}

		data, merr := json.Marshal(response)
		if merr != nil {
			return internalErr(txID, merr)
		}

		ev, everr := notify.Register(txn, w.EventKind(), touched, now)
		if everr != nil {
			return internalErr(txID, everr)
		}

		if err := txn.PutTransactionResult(txID, ev.ID, data); err != nil {
			return internalErr(txID, err)
		}

		result = data
		committed = ev
		return nil
	})
	storeTimer.ObserveDurationVec(metrics.StoreOperationDuration, "update")

	if replayed {
		metrics.TransactionReplaysTotal.Inc()
	}
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues(w.Op(), "error").Inc()
		var cerr *Error
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, internalErr(txID, err)
	}
	metrics.TransactionsTotal.WithLabelValues(w.Op(), "success").Inc()
	if !replayed {
		txnTimer.ObserveDurationVec(metrics.TransactionDuration, w.Op())
	}

	if committed != nil {
		if verr := c.Store.View(func(txn *storage.Txn) error {
			notify.EmitAfterCommit(c.Broker, txn, c.Graph, committed)
			return nil
		}); verr != nil {
			log.Logger.Warn().Err(verr).Str("tx_id", txID).Msg("post-commit notification view failed")
		}
		metrics.EventsPublishedTotal.WithLabelValues(string(committed.Kind)).Inc()
	}
	return result, nil
}

// translateStorageErr maps a raw error surfaced from a storage.Txn call
// that a Write.Execute forwarded without wrapping onto the richer
// vocabulary; anything not recognized as a storage.Error is Internal.
func translateStorageErr(txID string, err error) *Error {
	switch {
	case storage.IsNotFound(err):
		return notFound("%v", err)
	case storage.IsConflict(err):
		return conflict("%v", err)
	default:
		return internalErr(txID, err)
	}
}
