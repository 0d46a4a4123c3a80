// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/auth/memory"
)

// parallel runs fn n times concurrently and waits for all of them.
func parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			fn(i)
		}()
	}
	wg.Wait()
}

var _ = Describe("AccountRegistry under concurrency", func() {
	var (
		ctx      context.Context
		registry *memory.AccountRegistry
	)

	BeforeEach(func() {
		ctx = context.Background()
		registry = memory.NewAccountRegistry()
	})

	It("admits exactly one of many racing registrations for a name", func() {
		var created, duplicates atomic.Int32
		parallel(64, func(i int) {
			// Vary case to exercise normalization.
			name := "Contested"
			if i%2 == 0 {
				name = "contested"
			}
			_, err := registry.Create(ctx, name, "hash", auth.RoleUser)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, auth.ErrDuplicateUsername):
				duplicates.Add(1)
			default:
				Fail(fmt.Sprintf("unexpected error: %v", err))
			}
		})

		Expect(created.Load()).To(Equal(int32(1)))
		Expect(duplicates.Load()).To(Equal(int32(63)))
		Expect(registry.Count(ctx)).To(Equal(1))
	})

	It("keeps distinct registrations independent", func() {
		parallel(50, func(i int) {
			_, err := registry.Create(ctx, fmt.Sprintf("user_%d", i), "hash", auth.RoleUser)
			Expect(err).NotTo(HaveOccurred())
		})
		Expect(registry.Count(ctx)).To(Equal(50))
	})

	It("serializes read-modify-write updates", func() {
		account, err := registry.Create(ctx, "counter", "hash", auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		parallel(100, func(int) {
			_, err := registry.Update(ctx, account.ID, func(a *auth.Account) error {
				a.FailedAttempts++
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		stored, err := registry.GetByID(ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.FailedAttempts).To(Equal(100))
	})
})

var _ = Describe("SessionManager under concurrency", func() {
	var (
		ctx   context.Context
		clock *testClock
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = newTestClock()
	})

	It("never exceeds the per-account cap", func() {
		manager := newManager(clock, memory.WithSessionPolicy(memory.SessionPolicy{MaxPerAccount: 3}))
		accountID := ulid.Make()

		var issued atomic.Int32
		parallel(40, func(int) {
			_, _, err := manager.Create(ctx, accountID, time.Hour, "")
			if err == nil {
				issued.Add(1)
				return
			}
			Expect(err).To(MatchError(auth.ErrSessionLimitReached))
		})

		Expect(issued.Load()).To(Equal(int32(3)))
		Expect(manager.ListForAccount(ctx, accountID)).To(HaveLen(3))
	})

	It("leaves exactly one live session under single-session policy", func() {
		manager := newManager(clock, memory.WithSessionPolicy(memory.SessionPolicy{SingleSession: true}))
		accountID := ulid.Make()

		parallel(30, func(int) {
			_, _, err := manager.Create(ctx, accountID, time.Hour, "")
			Expect(err).NotTo(HaveOccurred())
		})

		Expect(manager.Len()).To(Equal(1))
	})

	It("evicts an expired session once while readers race", func() {
		manager := newManager(clock)
		_, token, err := manager.Create(ctx, ulid.Make(), time.Minute, "")
		Expect(err).NotTo(HaveOccurred())
		clock.Advance(time.Minute)

		var expired, missing atomic.Int32
		parallel(32, func(int) {
			_, err := manager.Validate(ctx, token)
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				expired.Add(1)
			case errors.Is(err, auth.ErrNotFound):
				missing.Add(1)
			default:
				Fail(fmt.Sprintf("unexpected result: %v", err))
			}
		})

		Expect(expired.Load()).To(Equal(int32(1)))
		Expect(missing.Load()).To(Equal(int32(31)))
		Expect(manager.Len()).To(BeZero())
	})

	It("keeps indexes consistent when revocation races validation and sweeping", func() {
		manager := newManager(clock, memory.WithSessionPolicy(memory.SessionPolicy{}))
		accountID := ulid.Make()

		tokens := make([]string, 50)
		for i := range tokens {
			_, token, err := manager.Create(ctx, accountID, time.Hour, "")
			Expect(err).NotTo(HaveOccurred())
			tokens[i] = token
		}

		parallel(len(tokens)*2, func(i int) {
			token := tokens[i%len(tokens)]
			switch i % 4 {
			case 0:
				_ = manager.Revoke(ctx, token)
			case 1:
				_, _ = manager.Validate(ctx, token)
			case 2:
				_, _ = manager.DeleteExpired(ctx)
			default:
				_, _ = manager.ListForAccount(ctx, accountID)
			}
		})

		revoked, err := manager.RevokeAllForAccount(ctx, accountID)
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.Len()).To(BeZero())
		Expect(revoked).To(BeNumerically("<=", len(tokens)))
	})
})
