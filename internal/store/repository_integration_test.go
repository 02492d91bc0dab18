// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

//go:build integration

package store_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tasktrack/tasktrack/internal/auth"
	authpg "github.com/tasktrack/tasktrack/internal/auth/postgres"
	"github.com/tasktrack/tasktrack/internal/store"
	"github.com/tasktrack/tasktrack/internal/task"
	taskpg "github.com/tasktrack/tasktrack/internal/task/postgres"
)

var _ = Describe("Migrations", func() {
	It("reports the latest version with nothing pending", func() {
		migrator, err := store.NewMigrator(env.connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(migrator.Close)

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(Equal(uint(2)))

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})
})

var _ = Describe("Repositories", func() {
	var (
		users *authpg.UserRepository
		tasks *taskpg.TaskRepository
		alice *auth.User
		bob   *auth.User
	)

	newUser := func(name, email string) *auth.User {
		u, err := auth.NewUser(name, email, "$2a$04$placeholderplaceholderplaceholderplaceholderpla")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(env.ctx, u)).To(Succeed())
		return u
	}

	newTask := func(owner *auth.User, title string, s task.Status, p task.Priority, due *time.Time, created time.Time) *task.Task {
		tk := &task.Task{
			ID: ulid.Make(), OwnerID: owner.ID, Title: title,
			Status: s, Priority: p, DueDate: due,
			CreatedAt: created, UpdatedAt: created,
		}
		Expect(tasks.Create(env.ctx, tk)).To(Succeed())
		return tk
	}

	BeforeEach(func() {
		env.truncate()
		users = authpg.NewUserRepository(env.pool)
		tasks = taskpg.NewTaskRepository(env.pool)
		alice = newUser("Alice", "alice@example.com")
		bob = newUser("Bob", "bob@example.com")
	})

	Describe("users", func() {
		It("rejects a duplicate email regardless of case", func() {
			dup, err := auth.NewUser("Alice Again", "ALICE@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())
			dup.Email = "ALICE@example.com"
			Expect(users.Create(env.ctx, dup)).To(MatchError(auth.ErrEmailTaken))
		})

		It("finds users by email case-insensitively", func() {
			got, err := users.GetByEmail(env.ctx, "Alice@Example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(alice.ID))
		})
	})

	Describe("tasks", func() {
		It("isolates owners on every operation", func() {
			tk := newTask(alice, "private", task.StatusPending, task.PriorityMedium, nil, time.Now().UTC())

			_, err := tasks.Get(env.ctx, tk.ID, bob.ID)
			Expect(err).To(MatchError(task.ErrNotFound))

			_, err = tasks.Update(env.ctx, tk.ID, bob.ID, task.Patch{Title: "stolen", UpdatedAt: time.Now()})
			Expect(err).To(MatchError(task.ErrNotFound))

			Expect(tasks.Delete(env.ctx, tk.ID, bob.ID)).To(MatchError(task.ErrNotFound))

			got, err := tasks.Get(env.ctx, tk.ID, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("private"))
		})

		It("lists in dashboard order", func() {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			soon := base.AddDate(0, 0, 1)
			later := base.AddDate(0, 0, 5)

			newTask(alice, "done", task.StatusCompleted, task.PriorityHigh, &soon, base)
			newTask(alice, "doing", task.StatusInProgress, task.PriorityLow, nil, base)
			newTask(alice, "low", task.StatusPending, task.PriorityLow, &soon, base)
			newTask(alice, "high-undated", task.StatusPending, task.PriorityHigh, nil, base)
			newTask(alice, "high-later", task.StatusPending, task.PriorityHigh, &later, base)
			newTask(alice, "high-soon-old", task.StatusPending, task.PriorityHigh, &soon, base)
			newTask(alice, "high-soon-new", task.StatusPending, task.PriorityHigh, &soon, base.Add(time.Hour))
			newTask(bob, "bob's", task.StatusPending, task.PriorityHigh, nil, base)

			list, err := tasks.List(env.ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())

			titles := make([]string, 0, len(list))
			for _, tk := range list {
				titles = append(titles, tk.Title)
			}
			Expect(titles).To(Equal([]string{
				"high-soon-new", "high-soon-old", "high-later", "high-undated", "low", "doing", "done",
			}))
		})

		It("updates atomically with keep and clear semantics", func() {
			due := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
			tk := newTask(alice, "orig", task.StatusInProgress, task.PriorityHigh, &due, time.Now().UTC())
			desc := "notes"
			_, err := tasks.Update(env.ctx, tk.ID, alice.ID, task.Patch{Title: "orig", Description: &desc, UpdatedAt: time.Now()})
			Expect(err).NotTo(HaveOccurred())

			got, err := tasks.Update(env.ctx, tk.ID, alice.ID, task.Patch{Title: "renamed", UpdatedAt: time.Now()})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("renamed"))
			Expect(got.Status).To(Equal(task.StatusInProgress))
			Expect(got.Priority).To(Equal(task.PriorityHigh))
			Expect(got.Description).To(HaveValue(Equal("notes")))
			Expect(got.DueDate).To(BeNil())

			empty := ""
			got, err = tasks.Update(env.ctx, tk.ID, alice.ID, task.Patch{Title: "renamed", Description: &empty, UpdatedAt: time.Now()})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Description).To(BeNil())
		})

		It("deletes tasks with their owner", func() {
			tk := newTask(alice, "cascade", task.StatusPending, task.PriorityLow, nil, time.Now().UTC())
			_, err := env.pool.Exec(env.ctx, `DELETE FROM users WHERE id = $1`, alice.ID.String())
			Expect(err).NotTo(HaveOccurred())

			_, err = tasks.Get(env.ctx, tk.ID, alice.ID)
			Expect(err).To(MatchError(task.ErrNotFound))
		})
	})
})
