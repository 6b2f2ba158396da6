// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// FakeApp is a throwaway executable that stands in for a managed app.
type FakeApp struct {
	Dir  string
	Name string
}

// NewFakeApp creates a fake app generator under dir.
func NewFakeApp(dir, name string) *FakeApp {
	return &FakeApp{Dir: dir, Name: name}
}

// Path returns the executable location.
func (f *FakeApp) Path() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(f.Dir, f.Name+".cmd")
	}
	return filepath.Join(f.Dir, f.Name)
}

// Create writes a script that runs for the given number of seconds.
func (f *FakeApp) Create(seconds int) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}

	script := fmt.Sprintf("#!/bin/sh\nsleep %d\n", seconds)
	if runtime.GOOS == "windows" {
		script = fmt.Sprintf("@echo off\r\nping -n %d 127.0.0.1 >NUL\r\n", seconds+1)
	}
	return os.WriteFile(f.Path(), []byte(script), 0755)
}

// Exists checks if the script is on disk.
func (f *FakeApp) Exists() bool {
	_, err := os.Stat(f.Path())
	return err == nil
}
