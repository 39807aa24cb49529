package service

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
)

const (
	sweepBatchSize = 200
	sweepLockKey   = "lock:cart-sweeper"
)

// Sweeper reclaims expired cart holds: it releases the reserved stock
// and deletes the line.  Each line is handled in its own transaction
// under the product row lock, so a checkout or extension racing the
// sweeper either wins cleanly (the sweeper re-reads and skips) or loses
// cleanly (the buyer sees the line gone).
//
// When several instances run, a Redis lock keeps passes from piling up;
// loss of Redis degrades to every instance sweeping, which is safe, just
// redundant.
type Sweeper struct {
	tx       TxRunner
	stock    StockStore
	cart     CartStore
	clk      clock.Clock
	ttl      time.Duration
	interval time.Duration
	locker   *redislock.Client
	log      *logrus.Logger
}

// NewSweeper wires a Sweeper.  locker may be nil.
func NewSweeper(tx TxRunner, stock StockStore, cart CartStore, clk clock.Clock, ttl, interval time.Duration, locker *redislock.Client, log *logrus.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = model.DefaultReservationTTL
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if log == nil {
		log = logrus.New()
	}
	return &Sweeper{tx: tx, stock: stock, cart: cart, clk: clk, ttl: ttl, interval: interval, locker: locker, log: log}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.WithField("interval", s.interval.String()).Info("cart sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cart sweeper stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

// pass runs one sweep, holding the cross-instance lock when available.
func (s *Sweeper) pass(ctx context.Context) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, sweepLockKey, s.interval, nil)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			return // another instance is sweeping
		case err != nil:
			s.log.WithError(err).Debug("sweeper lock unavailable, sweeping anyway")
		default:
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}
	if n, err := s.SweepOnce(ctx); err != nil {
		s.log.WithError(err).Error("sweep pass failed")
	} else if n > 0 {
		s.log.WithField("reclaimed", n).Info("expired cart holds reclaimed")
	}
}

// SweepOnce reclaims one batch of expired holds and returns how many
// lines it removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clk.Now().Add(-s.ttl)
	expired, err := s.cart.ListExpired(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for i := range expired {
		ok, err := s.reclaim(ctx, &expired[i], cutoff)
		if err != nil {
			return reclaimed, err
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, nil
}

// reclaim releases one hold.  The line is re-read under the product
// lock: a checkout may have deleted it and an extension may have
// refreshed it since the listing, in which case there is nothing to do.
func (s *Sweeper) reclaim(ctx context.Context, stale *model.CartLine, cutoff time.Time) (bool, error) {
	done := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.stock.GetForUpdate(ctx, stale.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return s.cart.DeleteByID(ctx, stale.ID)
			}
			return err
		}
		l, err := s.cart.GetForUpdate(ctx, stale.BuyerID, stale.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrCartLineNotFound) {
				return nil // checkout or release won the race
			}
			return err
		}
		if l.ID != stale.ID || l.IsPreorder || l.ReservedAt == nil || l.ReservedAt.After(cutoff) {
			return nil // refreshed or replaced in the meantime
		}
		if p.ReservedQuantity < l.Quantity {
			s.log.WithFields(logrus.Fields{
				"product_id": p.ID,
				"reserved":   p.ReservedQuantity,
				"release":    l.Quantity,
			}).Warn("reserved counter drift clamped to zero")
			p.ReservedQuantity = 0
		} else {
			p.ReservedQuantity -= l.Quantity
		}
		if err := s.stock.SaveQuantities(ctx, p.ID, p.TotalQuantity, p.ReservedQuantity); err != nil {
			return err
		}
		if err := s.cart.DeleteByID(ctx, l.ID); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}
