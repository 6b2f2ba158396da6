package infra

import (
	"errors"
	"fmt"
	"strings"
)

// mockCommandRunner records commands instead of executing them.
type mockCommandRunner struct {
	calls  []string
	runErr error
	output []byte
}

func (m *mockCommandRunner) Run(name string, args ...string) error {
	m.calls = append(m.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return m.runErr
}

func (m *mockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return m.output, m.runErr
}

// fakeRegistry is an in-memory RegistryStore.
type fakeRegistry struct {
	strings map[string]string
	dwords  map[string]uint32
	failOn  map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		strings: make(map[string]string),
		dwords:  make(map[string]uint32),
		failOn:  make(map[string]error),
	}
}

func regKey(root RegistryRoot, path, name string) string {
	return fmt.Sprintf(`%s\%s\%s`, root, path, name)
}

func (f *fakeRegistry) GetString(root RegistryRoot, path, name string) (string, error) {
	v, ok := f.strings[regKey(root, path, name)]
	if !ok {
		return "", ErrValueNotFound
	}
	return v, nil
}

func (f *fakeRegistry) SetString(root RegistryRoot, path, name, value string) error {
	k := regKey(root, path, name)
	if err := f.failOn[k]; err != nil {
		return err
	}
	f.strings[k] = value
	return nil
}

func (f *fakeRegistry) SetDWord(root RegistryRoot, path, name string, value uint32) error {
	k := regKey(root, path, name)
	if err := f.failOn[k]; err != nil {
		return err
	}
	f.dwords[k] = value
	return nil
}

func (f *fakeRegistry) DeleteValue(root RegistryRoot, path, name string) error {
	k := regKey(root, path, name)
	_, s := f.strings[k]
	_, d := f.dwords[k]
	if !s && !d {
		return ErrValueNotFound
	}
	delete(f.strings, k)
	delete(f.dwords, k)
	return nil
}

var errAccessDenied = errors.New("Access is denied.")
