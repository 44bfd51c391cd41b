package feed

import "distribution-backoffice/internal/core"

// PendingEdit marks a field the local screen has changed but not yet saved.
// Incoming snapshots must not clobber it.
type PendingEdit struct {
	ItemID int
	Field  string // core.FieldFulfillQty or core.FieldFinalPrice
}

// MergeSnapshot folds an incoming snapshot into the locally displayed order.
// Staleness is decided by the version stamp: an incoming snapshot at or below
// the local version is discarded wholesale. A newer snapshot wins everywhere
// except fields named in pending, which keep their local (unsaved) values.
// The result is always a fresh copy; neither input is mutated.
func MergeSnapshot(local, incoming *core.Order, pending []PendingEdit) *core.Order {
	if incoming == nil {
		return cloneOrder(local)
	}
	if local == nil || incoming.Version > local.Version {
		merged := cloneOrder(incoming)
		if local != nil {
			restorePending(merged, local, pending)
		}
		return merged
	}
	return cloneOrder(local)
}

func restorePending(merged, local *core.Order, pending []PendingEdit) {
	if len(pending) == 0 {
		return
	}
	localItems := make(map[int]core.OrderItem, len(local.Items))
	for _, it := range local.Items {
		localItems[it.ID] = it
	}
	for _, p := range pending {
		src, ok := localItems[p.ItemID]
		if !ok {
			continue
		}
		for i := range merged.Items {
			if merged.Items[i].ID != p.ItemID {
				continue
			}
			switch p.Field {
			case core.FieldFulfillQty:
				merged.Items[i].FulfillQty = src.FulfillQty
			case core.FieldFinalPrice:
				merged.Items[i].FinalPrice = src.FinalPrice
			}
		}
	}
}

func cloneOrder(o *core.Order) *core.Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = make([]core.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
