// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system: resolving "~" in user given
// directories and writing generated files atomically.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// ReplaceTildeInDir by the user's home directory. Returns dir if it doesn't start with "~".
//
// It returns an error if `dir` has an unknown user (e.g: `~unknown/...`).
func ReplaceTildeInDir(dir string) (string, error) {
	if len(dir) == 0 || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		sepIdx := strings.IndexRune(dir, '/')
		if sepIdx == -1 {
			userName = dir[1:]
		} else {
			userName = dir[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return filepath.Join(usr.HomeDir, dir[1+len(userName):]), nil
}

// ScratchPath returns a unique path in dir for a temporary file, with the given suffix (e.g. ".cpp").
func ScratchPath(dir, suffix string) string {
	return filepath.Join(dir, ".scratch-"+uuid.NewString()+suffix)
}

// WriteFileAtomic writes contents to a scratch file in the same directory as path and renames it, so
// concurrent readers either see the complete file or no file.
// The directory is created if it doesn't exist.
func WriteFileAtomic(path string, contents []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating directory %q", dir)
	}
	scratch := ScratchPath(dir, filepath.Ext(path))
	if err := os.WriteFile(scratch, contents, perm); err != nil {
		return errors.Wrapf(err, "writing %q", scratch)
	}
	if err := os.Rename(scratch, path); err != nil {
		_ = os.Remove(scratch)
		return errors.Wrapf(err, "renaming %q to %q", scratch, path)
	}
	return nil
}
