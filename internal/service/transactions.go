package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/expense-service/internal/access"
	"github.com/Dan9191/expense-service/internal/filter"
	"github.com/Dan9191/expense-service/internal/metrics"
	"github.com/Dan9191/expense-service/internal/models"
	"github.com/Dan9191/expense-service/internal/repository"
)

// ListTransactions returns the size of the caller's filtered visible set and
// the window selected by q.Limit/q.Offset. Any owner restriction already in q
// is replaced by the caller's scope.
func (s *Service) ListTransactions(ctx context.Context, caller *models.User, q models.TransactionQuery) (int, []models.Transaction, error) {
	if !access.IsAuthenticated.HasPermission(caller, nil) {
		return 0, nil, ErrUnauthenticated
	}
	q.OwnerID = access.Scope(caller)

	if q.OwnerID == nil || s.cache == nil {
		return s.store.ListTransactions(ctx, q)
	}

	snapshot, err := s.snapshot(ctx, *q.OwnerID)
	if err != nil {
		return 0, nil, err
	}
	count, txs := filter.Apply(snapshot, q)
	return count, txs, nil
}

// snapshot returns every transaction of ownerID, from the cache when possible
func (s *Service) snapshot(ctx context.Context, ownerID int64) ([]models.Transaction, error) {
	log := s.log.WithField("owner_id", ownerID)

	txs, ok, err := s.cache.Get(ctx, ownerID)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warnf("Cache read failed: %v", err)
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return txs, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	_, txs, err = s.store.ListTransactions(ctx, models.TransactionQuery{OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, ownerID, txs); err != nil {
		log.Warnf("Cache write failed: %v", err)
	}
	return txs, nil
}

// GetTransaction returns a single record if the caller may see it
func (s *Service) GetTransaction(ctx context.Context, caller *models.User, id int64) (*models.Transaction, error) {
	return s.object(ctx, caller, id)
}

// CreateTransaction stores a new record owned by the caller
func (s *Service) CreateTransaction(ctx context.Context, caller *models.User, patch models.TransactionPatch) (*models.Transaction, error) {
	if !s.perm.HasPermission(caller, nil) {
		return nil, ErrUnauthenticated
	}

	fields, err := patch.Apply(models.DefaultTransactionFields(), false)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.CreateTransaction(ctx, caller.ID, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, caller.ID)

	metrics.Mutations.WithLabelValues("create").Inc()
	s.log.WithFields(logrus.Fields{"transaction_id": tx.ID, "owner_id": tx.OwnerID}).
		Info("Transaction created")
	return tx, nil
}

// UpdateTransaction applies patch to a record the caller may modify. Unless
// partial is set the patch must carry every required field.
func (s *Service) UpdateTransaction(ctx context.Context, caller *models.User, id int64, patch models.TransactionPatch, partial bool) (*models.Transaction, error) {
	current, err := s.object(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fields, err := patch.Apply(current.Fields(), partial)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.UpdateTransaction(ctx, id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tx.OwnerID, caller.ID)

	metrics.Mutations.WithLabelValues("update").Inc()
	s.log.WithFields(logrus.Fields{"transaction_id": tx.ID, "owner_id": tx.OwnerID, "caller_id": caller.ID}).
		Info("Transaction updated")
	return tx, nil
}

// DeleteTransaction permanently removes a record the caller may modify
func (s *Service) DeleteTransaction(ctx context.Context, caller *models.User, id int64) error {
	current, err := s.object(ctx, caller, id)
	if err != nil {
		return err
	}

	err = s.store.DeleteTransaction(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, current.OwnerID, caller.ID)

	metrics.Mutations.WithLabelValues("delete").Inc()
	s.log.WithFields(logrus.Fields{"transaction_id": id, "owner_id": current.OwnerID, "caller_id": caller.ID}).
		Info("Transaction deleted")
	return nil
}

// object looks id up in the whole collection, not the caller's visible set,
// so that a foreign record yields ErrForbidden rather than ErrNotFound
func (s *Service) object(ctx context.Context, caller *models.User, id int64) (*models.Transaction, error) {
	if !access.IsAuthenticated.HasPermission(caller, nil) {
		return nil, ErrUnauthenticated
	}

	tx, err := s.store.FindTransactionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !s.perm.HasPermission(caller, tx) {
		return nil, ErrForbidden
	}
	return tx, nil
}

// invalidate drops the cached snapshots of every owner touched by a mutation
func (s *Service) invalidate(ctx context.Context, ownerIDs ...int64) {
	if s.cache == nil {
		return
	}
	seen := map[int64]bool{}
	for _, id := range ownerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.WithField("owner_id", id).Errorf("Cache invalidation failed: %v", err)
		}
	}
}
