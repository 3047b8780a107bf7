// Package version provides the Cribo tool version.
package version

// Version is the Cribo tool version.
// Can be overridden at build time with:
//
//	go build -ldflags "-X github.com/cribo-bundler/cribo/pkg/version.Version=0.2.0"
var Version = "dev"
