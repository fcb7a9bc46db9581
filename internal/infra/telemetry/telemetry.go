package telemetry

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/account-service/internal/core/port"
)

// AuthMetrics exposes Prometheus counters for the account flows.
type AuthMetrics struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

// NewAuthMetrics registers the account collectors with reg, reusing collectors
// that are already registered.
func NewAuthMetrics(reg prometheus.Registerer, namespace string) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "account"
	}

	logins, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts partitioned by outcome.",
	}, "outcome")
	if err != nil {
		return nil, err
	}

	registrations, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Registration attempts partitioned by success.",
	}, "success")
	if err != nil {
		return nil, err
	}

	cacheLookups, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "profile_cache",
		Name:      "lookups_total",
		Help:      "Profile cache lookups partitioned by result.",
	}, "result")
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		logins:        logins,
		registrations: registrations,
		cacheLookups:  cacheLookups,
	}, nil
}

// ObserveLogin counts a login attempt.
func (m *AuthMetrics) ObserveLogin(outcome port.LoginOutcome) {
	m.logins.WithLabelValues(string(outcome)).Inc()
}

// ObserveRegistration counts a registration attempt.
func (m *AuthMetrics) ObserveRegistration(success bool) {
	m.registrations.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveProfileCache counts a cache lookup.
func (m *AuthMetrics) ObserveProfileCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return existing, nil
	}
	return vec, nil
}

var _ port.AuthMetrics = (*AuthMetrics)(nil)
