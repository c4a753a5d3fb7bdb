// Package archive provides optional blob storage for webhook approval
// payloads (SPEC_FULL.md §1.2): a host can configure the webhook transport
// to persist the outbound request and inbound callback bodies to S3 or GCS
// before they're processed, independent of the (default, in-memory-only)
// approval store itself.
package archive

import "context"

// Archiver persists an approval-related blob under id and returns a
// reference (e.g. a content hash or object key) a host can use to retrieve
// it later. Archiving is best-effort: the webhook transport logs failures
// but never lets an archive error block an approval decision.
type Archiver interface {
	Archive(ctx context.Context, id string, body []byte) (ref string, err error)
}
