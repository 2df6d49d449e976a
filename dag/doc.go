// Package dag assembles plugins into a dependency graph and wires their
// output streams.
//
// A Registry maps output names to plugins. Build resolves the transitive
// dependencies of the requested targets, orders them in Kahn levels and binds
// every plugin once its upstream schemas are known. Stream then connects the
// bound plugins lazily: nothing is computed until the returned iterator is
// pulled.
//
//	reg, _ := dag.NewRegistry(append(dag.DefaultSources(), peaks, events)...)
//	g, _ := dag.Build(reg, "events")
//	out, _ := g.Stream(ctx, "events", dag.WithSource("records", recordsIter))
//	defer out.Close()
//
// Placeholder outputs such as "records" are fed with WithSource; pulling a
// placeholder that has no source fails with a NotRegistered error.
package dag
