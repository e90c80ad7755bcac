// Package history records finished crawls so later runs can resume each
// resource from the start of the last run that crawled it successfully.
//
// Two backends implement Store: BoltStore keeps runs in a bbolt file and
// SQLiteStore in a SQLite database. Open picks one by name.
//
// Usage:
//
//	store, err := history.Open("bolt", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	watermark, err := history.ResumeWatermark(ctx, store,
//	    "mui-org/material-ui-pickers", root, []string{"issues", "releases"})
package history
