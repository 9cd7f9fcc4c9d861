// SPDX-License-Identifier: MIT
//
// Package build carries metadata stamped into the binary with -ldflags:
//
//	go build -ldflags "-X openhush/pkg/build.buildName=openhush \
//	  -X openhush/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds run without flags and report "dev".
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        "openhush",
		Description: "Local push-to-talk dictation: capture, condition, validate, transcribe.",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags values into the package Info. It fails,
// leaving the development defaults in place, if any flag is missing.
func Initialize() error {
	var errs []error
	if buildName == "" {
		errs = append(errs, errors.New("BuildName is required"))
	}
	if buildTime == "" {
		errs = append(errs, errors.New("BuildTime is required"))
	}
	if buildCommit == "" {
		errs = append(errs, errors.New("BuildCommit is required"))
	}
	if buildVersion == "" {
		errs = append(errs, errors.New("BuildVersion is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// Get returns the current build information.
func Get() Info {
	return buildInfo
}
