// Package version reports the kindflow build.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/kindflow/version.Version=1.2.0 \
//	  -X github.com/kbukum/kindflow/version.BuildTime=2026-01-02T15:04:05Z" ./cmd/kindflow
//
// Values left unset are filled from the module's VCS build settings when
// available.
package version
