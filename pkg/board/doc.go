// Package board provides the content board behind a small content-management
// site: posts with image attachments, identified publicly by an allocated
// post number, listed newest first and removed by soft delete.
//
// The package exposes a single Service interface that orchestrates content
// creation, lookup, listing, partial update and soft delete. Persistence is
// delegated to a Repository (memory and Postgres implementations live under
// repo/), post numbers come from an Allocator over a SequenceStore (memory,
// Postgres or Redis), and image files are handed to an ImageUploader which
// writes to a BlobStore (memory, filesystem, S3).
//
// Post Numbers
//
// The backing stores have no native auto-increment. Each logical sequence
// ("contents", "users", ...) owns one counter document that is incremented in
// a single store transaction. Contended or transient failures are retried with
// exponential backoff and jitter; when the retry budget is spent the caller
// receives an AllocationError. A number allocated for a document whose write
// then fails is skipped for good: numbers are unique and strictly increasing,
// not contiguous.
package board
