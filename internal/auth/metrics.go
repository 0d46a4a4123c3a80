// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for auth metrics.
const (
	StatusSuccess            = "success"
	StatusError              = "error"
	StatusInvalidCredentials = "invalid_credentials"
	StatusLocked             = "locked"
	StatusDuplicate          = "duplicate"
	StatusRejected           = "rejected"
	StatusForbidden          = "forbidden"
	StatusUnauthenticated    = "unauthenticated"
	StatusInsufficientRole   = "insufficient_role"
	StatusSessionLimit       = "session_limit"
)

// Revocation reasons for the sessions revoked counter.
const (
	ReasonLogout         = "logout"
	ReasonExpired        = "expired"
	ReasonAccountDeleted = "account_deleted"
	ReasonPasswordChange = "password_change"
	ReasonRoleChange     = "role_change"
	ReasonAccountGone    = "account_gone"
)

// Registrations counts registration attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bento_auth_registrations_total",
		Help: "Total number of account registration attempts",
	},
	[]string{"status"},
)

// Logins counts login attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bento_auth_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"status"},
)

// Authorizations counts authorization checks by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Authorizations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bento_auth_authorizations_total",
		Help: "Total number of authorization checks",
	},
	[]string{"status"},
)

// SessionsRevoked counts sessions removed before or at expiry, by reason.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionsRevoked = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bento_auth_sessions_revoked_total",
		Help: "Total number of sessions removed, by reason",
	},
	[]string{"reason"},
)

// PasswordHashDuration observes how long password hashing and verification take.
// Use RegisterMetrics to register this with a Prometheus registry.
var PasswordHashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bento_auth_password_hash_seconds",
		Help:    "Password hash and verify duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations)
	reg.MustRegister(Logins)
	reg.MustRegister(Authorizations)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(PasswordHashDuration)
}

// NewActiveSessionsGauge returns a gauge reporting the number of stored sessions.
func NewActiveSessionsGauge(store SessionStore) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bento_auth_sessions_active",
			Help: "Number of sessions held by the session store",
		},
		func() float64 { return float64(store.Len()) },
	)
}

// RecordRegistration increments the registration counter.
func RecordRegistration(status string) {
	Registrations.WithLabelValues(status).Inc()
}

// RecordLogin increments the login counter.
func RecordLogin(status string) {
	Logins.WithLabelValues(status).Inc()
}

// RecordAuthorization increments the authorization counter.
func RecordAuthorization(status string) {
	Authorizations.WithLabelValues(status).Inc()
}

// RecordSessionsRevoked adds n to the revoked sessions counter.
func RecordSessionsRevoked(reason string, n int) {
	if n <= 0 {
		return
	}
	SessionsRevoked.WithLabelValues(reason).Add(float64(n))
}

// RecordPasswordHash records the duration of a hash or verify operation.
func RecordPasswordHash(operation string, duration time.Duration) {
	PasswordHashDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
