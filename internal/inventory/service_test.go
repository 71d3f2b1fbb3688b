package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backstage-events/backstage/internal/document"
)

type memoryRepo struct {
	materials map[string]MaterialBalance
	lineItems map[string]document.Document
	nextID    int
	failOn    string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{materials: make(map[string]MaterialBalance), lineItems: make(map[string]document.Document)}
}

type memoryTx struct {
	repo *memoryRepo
	// staged state: committed only when the tx fn returns nil.
	materials map[string]MaterialBalance
	inserted  map[string]document.Document
	deleted   []string
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, materials: make(map[string]MaterialBalance), inserted: make(map[string]document.Document)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, bal := range tx.materials {
		r.materials[id] = bal
	}
	for id, item := range tx.inserted {
		r.lineItems[id] = item
	}
	for _, id := range tx.deleted {
		delete(r.lineItems, id)
	}
	return nil
}

func (t *memoryTx) GetMaterialForUpdate(ctx context.Context, materialID string) (MaterialBalance, error) {
	if staged, ok := t.materials[materialID]; ok {
		return staged, nil
	}
	bal, ok := t.repo.materials[materialID]
	if !ok {
		return MaterialBalance{}, ErrMaterialNotFound
	}
	return bal, nil
}

func (t *memoryTx) SetMaterialBalance(ctx context.Context, materialID string, bal MaterialBalance) error {
	t.materials[materialID] = bal
	return nil
}

func (t *memoryTx) InsertLineItem(ctx context.Context, body document.Document) (document.Document, error) {
	if t.repo.failOn == "insert" {
		return nil, errors.New("insert failed")
	}
	t.repo.nextID++
	id := fmt.Sprintf("item-%d", t.repo.nextID)
	item := make(document.Document, len(body)+1)
	for k, v := range body {
		item[k] = v
	}
	item["id"] = id
	t.inserted[id] = item
	return item, nil
}

func (t *memoryTx) GetLineItemForUpdate(ctx context.Context, id string) (document.Document, error) {
	item, ok := t.repo.lineItems[id]
	if !ok {
		return nil, ErrLineItemNotFound
	}
	return item, nil
}

func (t *memoryTx) DeleteLineItem(ctx context.Context, id string) error {
	if _, ok := t.repo.lineItems[id]; !ok {
		return ErrLineItemNotFound
	}
	t.deleted = append(t.deleted, id)
	return nil
}

func TestReserveMovesStockToReserved(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 10}
	svc := NewService(repo, nil, nil)

	item, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(4),
	})
	require.NoError(t, err)
	require.NotEmpty(t, item["id"])
	require.Equal(t, MaterialBalance{Stock: 6, Reserved: 4}, repo.materials["mat-1"])
	require.Len(t, repo.lineItems, 1)
}

func TestReserveDefaultsActive(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 10}
	svc := NewService(repo, nil, nil)

	item, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(1),
	})
	require.NoError(t, err)
	require.Equal(t, true, item["is_active"])

	item, err = svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(1), "is_active": false,
	})
	require.NoError(t, err)
	require.Equal(t, false, item["is_active"])
}

func TestReserveInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 3}
	svc := NewService(repo, nil, nil)

	_, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(4),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, MaterialBalance{Stock: 3}, repo.materials["mat-1"])
	require.Empty(t, repo.lineItems)
}

func TestReserveUnknownMaterial(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "ghost", "quantity": float64(1),
	})
	require.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestReserveNegativeQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(-1),
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReserveZeroQuantitySkipsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 5}
	svc := NewService(repo, nil, nil)

	_, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1",
	})
	require.NoError(t, err)
	require.Equal(t, MaterialBalance{Stock: 5}, repo.materials["mat-1"])
	require.Len(t, repo.lineItems, 1)
}

// A failed line-item insert rolls back the stock movement; the partial
// reservation of the original two-write sequence cannot happen.
func TestReserveFailedInsertLeavesBalanceUntouched(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 10}
	repo.failOn = "insert"
	svc := NewService(repo, nil, nil)

	_, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(4),
	})
	require.Error(t, err)
	require.Equal(t, MaterialBalance{Stock: 10}, repo.materials["mat-1"])
	require.Empty(t, repo.lineItems)
}

func TestReleaseReturnsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 10}
	svc := NewService(repo, nil, nil)

	item, err := svc.Reserve(context.Background(), document.Document{
		"event": "evt-1", "material": "mat-1", "quantity": float64(4),
	})
	require.NoError(t, err)
	require.Equal(t, MaterialBalance{Stock: 6, Reserved: 4}, repo.materials["mat-1"])

	err = svc.Release(context.Background(), item["id"].(string))
	require.NoError(t, err)
	require.Equal(t, MaterialBalance{Stock: 10, Reserved: 0}, repo.materials["mat-1"])
	require.Empty(t, repo.lineItems)
}

// A line item written before the reserved counter existed releases cleanly;
// the counter never goes below zero.
func TestReleaseClampsReservedAtZero(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["mat-1"] = MaterialBalance{Stock: 6}
	repo.lineItems["item-9"] = document.Document{
		"id": "item-9", "event": "evt-1", "material": "mat-1", "quantity": float64(4),
	}
	svc := NewService(repo, nil, nil)

	err := svc.Release(context.Background(), "item-9")
	require.NoError(t, err)
	require.Equal(t, MaterialBalance{Stock: 10, Reserved: 0}, repo.materials["mat-1"])
	require.Empty(t, repo.lineItems)
}

func TestReleaseUnknownLineItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	err := svc.Release(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrLineItemNotFound)
}

func TestReleaseWithMissingMaterialStillDeletes(t *testing.T) {
	repo := newMemoryRepo()
	repo.lineItems["item-9"] = document.Document{
		"id": "item-9", "event": "evt-1", "material": "gone", "quantity": float64(2),
	}
	svc := NewService(repo, nil, nil)

	err := svc.Release(context.Background(), "item-9")
	require.NoError(t, err)
	require.Empty(t, repo.lineItems)
}
