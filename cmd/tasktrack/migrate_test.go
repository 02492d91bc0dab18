// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// mockMigrator implements Migrator for testing.
type mockMigrator struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	pending    []uint
	forced     int
	upCalled   bool
	downCalled bool
	closed     bool
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	return m.upErr
}

func (m *mockMigrator) Down() error {
	m.downCalled = true
	return m.downErr
}

func (m *mockMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *mockMigrator) Force(v int) error {
	m.forced = v
	return nil
}

func (m *mockMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }

func (m *mockMigrator) Close() error {
	m.closed = true
	return nil
}

func runMigrate(t *testing.T, m *mockMigrator, args ...string) (string, string, error) {
	t.Helper()
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var gotURL string
	cmd := newMigrateCmdWithDeps(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			gotURL = url
			return m, nil
		},
	})
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), gotURL, err
}

func TestMigrateUp(t *testing.T) {
	m := &mockMigrator{}
	out, url, err := runMigrate(t, m, "up", "--database-url", "postgres://db/tasks")
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if !m.upCalled || !m.closed {
		t.Errorf("upCalled=%v closed=%v, want both true", m.upCalled, m.closed)
	}
	if url != "postgres://db/tasks" {
		t.Errorf("url = %q", url)
	}
	if !strings.Contains(out, "Migrations completed successfully") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestMigrateUp_UsesDatabaseURLEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/tasks")
	m := &mockMigrator{}
	_, url, err := runMigrate(t, m, "up")
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if url != "postgres://env/tasks" {
		t.Errorf("url = %q, want DATABASE_URL value", url)
	}
}

func TestMigrateUp_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKTRACK_DATABASE_URL", "")
	m := &mockMigrator{}
	_, _, err := runMigrate(t, m, "up")
	if err == nil {
		t.Fatal("expected an error without a database URL")
	}
	if m.upCalled {
		t.Error("Up must not run without a database URL")
	}
}

func TestMigrateUp_ErrorStillCloses(t *testing.T) {
	m := &mockMigrator{upErr: errors.New("syntax error")}
	_, _, err := runMigrate(t, m, "up", "--database-url", "postgres://db/tasks")
	if err == nil {
		t.Fatal("expected the Up error")
	}
	if !m.closed {
		t.Error("migrator was not closed after a failure")
	}
}

func TestMigrateDown(t *testing.T) {
	m := &mockMigrator{}
	out, _, err := runMigrate(t, m, "down", "--database-url", "postgres://db/tasks")
	if err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if !m.downCalled {
		t.Error("Down was not called")
	}
	if !strings.Contains(out, "Rollback completed successfully") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestMigrateStatus(t *testing.T) {
	tests := []struct {
		name string
		m    *mockMigrator
		want []string
	}{
		{
			name: "fresh database",
			m:    &mockMigrator{pending: []uint{1, 2}},
			want: []string{"Current version: none", "State: clean", "Pending: 2 [1 2]"},
		},
		{
			name: "up to date",
			m:    &mockMigrator{version: 2},
			want: []string{"Current version: 2", "Pending: none"},
		},
		{
			name: "dirty",
			m:    &mockMigrator{version: 2, dirty: true},
			want: []string{"State: dirty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runMigrate(t, tt.m, "status", "--database-url", "postgres://db/tasks")
			if err != nil {
				t.Fatalf("migrate status: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}

func TestMigrateForce(t *testing.T) {
	m := &mockMigrator{}
	out, _, err := runMigrate(t, m, "force", "1", "--database-url", "postgres://db/tasks")
	if err != nil {
		t.Fatalf("migrate force: %v", err)
	}
	if m.forced != 1 {
		t.Errorf("forced = %d, want 1", m.forced)
	}
	if !strings.Contains(out, "Forced schema version to 1") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestMigrateForce_RejectsNonInteger(t *testing.T) {
	m := &mockMigrator{}
	_, _, err := runMigrate(t, m, "force", "latest", "--database-url", "postgres://db/tasks")
	if err == nil {
		t.Fatal("expected an error for a non-integer version")
	}
}
