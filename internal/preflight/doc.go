// Package preflight checks that vaultsearch can run against a data
// directory: the directory is writable, the disk has room, the index opens
// cleanly, and the embedding model can be loaded.
//
// Failed required checks mean commands will fail. Failed optional checks
// mean search degrades to keyword-only.
//
//	checker := preflight.New(dataDir,
//	    preflight.WithIndex(cfg.Index.Path, cfg.Index.StoreConfig()),
//	    preflight.WithEmbedder(embedder))
//	results := checker.RunAll(ctx)
//	if preflight.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
