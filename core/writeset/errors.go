package writeset

import stderrors "errors"

// The conversion layer splits failures into two classes. Speculative aborts
// are contradictions that only arise when the transaction's read view is
// stale under optimistic concurrency; the scheduler resolves them by
// re-executing the transaction. Storage and serialization faults are real,
// ordering-independent failures and must abort block processing.
var (
	ErrSpeculativeAbort = stderrors.New("writeset: speculative execution abort")
	ErrStorageFault     = stderrors.New("writeset: storage read failed")
	ErrSerialization    = stderrors.New("writeset: value serialization failed")
)
