package engine

import (
	"context"
	"fmt"

	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

// DefaultBatchSize bounds how many instances are held in memory and
// rewritten per bulk persistence call.
const DefaultBatchSize = 100

// InstanceSource is the narrow view of the record store the synchronizer
// needs: keyed batch fetches plus a bulk persist for rewritten attached
// data. *store.Store implements it.
type InstanceSource interface {
	FetchMissingKey(ctx context.Context, rt *metadata.RecordType, key string, limit int) ([]*store.Instance, error)
	FetchWithKey(ctx context.Context, rt *metadata.RecordType, key string, limit int) ([]*store.Instance, error)
	BulkPersist(ctx context.Context, rt *metadata.RecordType, instances []*store.Instance) error
}

// Synchronizer propagates field definition lifecycle events into the
// attached data of affected record instances. Every operation is a
// sequential scan-and-batch-write: each batch mutation removes its
// instances from the fetch predicate, so re-running an interrupted
// operation from the start converges without a resume cursor. No
// cross-batch transaction is held; see the batch contract in the
// operation docs.
type Synchronizer struct {
	src       InstanceSource
	registry  *metadata.Registry
	batchSize int
}

func NewSynchronizer(src InstanceSource, reg *metadata.Registry, batchSize int) *Synchronizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Synchronizer{src: src, registry: reg, batchSize: batchSize}
}

// PopulateInitialData sets the field default on every instance of the
// given record types whose attached data does not yet contain the field's
// key. Invoked when a field is created or newly assigned to a record type.
// Instances already carrying the key are left untouched, so re-runs are
// safe.
func (s *Synchronizer) PopulateInitialData(ctx context.Context, def *metadata.FieldDefinition, recordTypes []*metadata.RecordType) error {
	for _, rt := range recordTypes {
		for {
			batch, err := s.src.FetchMissingKey(ctx, rt, def.Name, s.batchSize)
			if err != nil {
				return fmt.Errorf("populate %s on %s: %w", def.Name, rt.Name, err)
			}
			if len(batch) == 0 {
				break
			}
			for _, inst := range batch {
				inst.Data[def.Name] = def.Default
			}
			if err := s.src.BulkPersist(ctx, rt, batch); err != nil {
				return fmt.Errorf("populate %s on %s: %w", def.Name, rt.Name, err)
			}
		}
	}
	return nil
}

// RemoveStaleData deletes the field's key from every instance of the
// given record types that carries it. Invoked when a field is deleted or
// unassigned from a record type. Instances already lacking the key are
// skipped.
func (s *Synchronizer) RemoveStaleData(ctx context.Context, def *metadata.FieldDefinition, recordTypes []*metadata.RecordType) error {
	for _, rt := range recordTypes {
		for {
			batch, err := s.src.FetchWithKey(ctx, rt, def.Name, s.batchSize)
			if err != nil {
				return fmt.Errorf("remove %s from %s: %w", def.Name, rt.Name, err)
			}
			if len(batch) == 0 {
				break
			}
			for _, inst := range batch {
				delete(inst.Data, def.Name)
			}
			if err := s.src.BulkPersist(ctx, rt, batch); err != nil {
				return fmt.Errorf("remove %s from %s: %w", def.Name, rt.Name, err)
			}
		}
	}
	return nil
}

// RenameObjectData moves attached values from oldName to newName on every
// instance carrying oldName. The scan is driven by the definition's
// current record type assignments: renaming is not meaningful outside the
// field's own scope. Invoked immediately after a successful rename of an
// existing field.
func (s *Synchronizer) RenameObjectData(ctx context.Context, def *metadata.FieldDefinition, oldName, newName string) error {
	for _, rt := range s.registry.ResolveRecordTypes(def.RecordTypes) {
		for {
			batch, err := s.src.FetchWithKey(ctx, rt, oldName, s.batchSize)
			if err != nil {
				return fmt.Errorf("rename %s to %s on %s: %w", oldName, newName, rt.Name, err)
			}
			if len(batch) == 0 {
				break
			}
			for _, inst := range batch {
				inst.Data[newName] = inst.Data[oldName]
				delete(inst.Data, oldName)
			}
			if err := s.src.BulkPersist(ctx, rt, batch); err != nil {
				return fmt.Errorf("rename %s to %s on %s: %w", oldName, newName, rt.Name, err)
			}
		}
	}
	return nil
}
