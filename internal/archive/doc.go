// Package archive reconciles a bulk data export against the store. An export
// carries up to three encodings of the same logical data: per-activity JSON
// documents, a tabular activity ledger, and gzip-compressed FIT device files.
// Documents win over ledger rows, which win over device files, for any
// activity id covered by more than one encoding.
package archive
