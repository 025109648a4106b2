// Package core holds the well program record model and every rule applied
// to it, independent of HTTP or the command line.
//
// # Records
//
// A [Record] is one row of the persisted workbook. Its No equals its
// position (1-based) and is rewritten by [Renumber] after every change.
// Status is never stored as typed: [DeriveStatus] computes it from the four
// approval slots, so a record is COMPLETED exactly when every slot is
// filled.
//
// # Store
//
// [XLSXStore] keeps the whole record set in a single .xlsx file. Each
// action loads the file, changes the slice and saves it back through a
// temporary file and a rename. A workbook that cannot be read is replaced
// by an empty one and the load reports [ErrStoreReset]; callers carry on
// with the empty set and show the warning.
//
// # Validation
//
// [Validator] applies the same rules to form input and uploaded rows:
// Well Name required, Program No unique (against the store and, for an
// upload, against earlier rows of the same file), closed lists for status,
// initiator and each approval slot, and valid, ordered dates. An upload is
// all or nothing: any violation rejects the whole file.
//
// # Uploads
//
// [Service.PreviewUpload] parses and validates a workbook and stages it
// under an ID; [Service.CommitUpload] validates the staged rows again and
// appends them. Staged uploads expire after [DefaultStagingTTL]. Parsing is
// gated by [UploadLimiter].
//
// # Reports
//
// The functions in aggregate.go are pure: filters, reminders, status
// distribution, approver backlog, slot progress and the monthly views,
// bundled by [BuildReport].
//
// # Errors
//
// [MapError] turns any error from this package into a [UserMessage] with a
// stable code (VAL, IDX, STORE, FILE, UPL, REQ, RATE) for display.
//
// # Audit
//
// Every successful change and every store reset is written to an
// [AuditSink]: [MemoryAuditLog] by default, or the Postgres table in
// internal/database.
package core
