// Package storage writes mirrored records to disk.
//
// Each record becomes one pretty-printed JSON file at
// <root>/<resource>/<filename>. Files are written to a temporary name in the
// same directory and renamed into place, so a reader never sees a partial
// record and rewriting an existing record replaces it.
//
// Usage:
//
//	sink, err := storage.NewJSONSink("tmp/ghmirror/mui-org/material-ui-pickers")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := sink.Write(ctx, "issues", "1234.json", record)
package storage
