// Package runner executes the commands of manifest command steps.
//
// A Runner is the capability behind a manifest runner kind. The "shell"
// kind is backed either by the system POSIX shell (/bin/sh -c) or by an
// embedded shell interpreter (mvdan.cc/sh), chosen by configuration, so new
// backends can be added without touching the build driver.
package runner
