// Package entsync maintains a queryable entity view over heterogeneous,
// human-editable files and keeps it synchronized with on-disk changes.
//
// CSV tables, Markdown frontmatter, JSON documents, and table literals
// embedded in arbitrary source code are extracted into entities that can be
// queried and surgically mutated: a write rewrites only the addressed
// fragment of the original file and leaves everything else byte-identical.
// A publish/subscribe event bus notifies consumers of entity and file
// changes with filtering, priority ordering and batching.
//
// Philosophy:
//
// The files stay the source of truth. The engine never owns the data; it
// maintains a live index over whatever authors and tools write to disk, and
// its own writes are indistinguishable from careful hand edits.
//
// Features:
//
//   - **Multi-Format Extraction**: CSV rows, Markdown frontmatter, JSON
//     documents and embedded table constructs become uniform entities.
//   - **Surgical Write-Back**: Mutations touch only the addressed line or
//     fragment; the rest of the file stays byte-identical.
//   - **Live Watching**: fsnotify-backed watcher keeps the view current as
//     files are added, changed or removed.
//   - **Event Bus**: priority-ordered listeners with filters, once
//     semantics, async delivery and WaitFor.
//   - **Extensible**: custom formats plug in via core.EditingModule.
//
// Usage:
//
//	// Initialize service with functional options
//	svc, err := entsync.New([]string{"./project"},
//		entsync.WithExtensions(".csv", ".md", ".rs"),
//		entsync.WithLogger(logger),
//	)
//	if err != nil {
//		// ...
//	}
//	if err := svc.Start(ctx); err != nil {
//		// ...
//	}
//
//	svc.On(core.EventEntityUpdated, func(payload any) error {
//		// react to a change
//		return nil
//	})
//
//	res := svc.UpdateEntity(ctx, "tasks-row-0", entsync.Properties{"Status": "Done"})
package entsync
