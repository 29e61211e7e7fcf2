// Package version reports the build of the transcriptcheck binary.
//
// Version and commit are set at link time and fall back to the module's
// embedded VCS stamp:
//
//	go build -ldflags "-X github.com/kbukum/transcriptcheck/version.Version=1.4.0" ./cmd/transcriptcheck
package version
