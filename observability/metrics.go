package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics aggregates the prometheus collectors for the loyalty ledger.
type LedgerMetrics struct {
	rewardsIssued      prometheus.Counter
	tokensIssued       prometheus.Counter
	redemptions        prometheus.Counter
	tokensRedeemed     prometheus.Counter
	voucherTransitions *prometheus.CounterVec
	commitConflicts    prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsReg  *LedgerMetrics
)

// Metrics returns the lazily-initialised ledger metrics registry.
func Metrics() *LedgerMetrics {
	metricsOnce.Do(func() {
		metricsReg = &LedgerMetrics{
			rewardsIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "rewards_issued_total",
				Help:      "Number of successful reward issuances.",
			}),
			tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "tokens_issued_total",
				Help:      "Total loyalty tokens credited to customers.",
			}),
			redemptions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "redemptions_total",
				Help:      "Number of successful voucher redemptions.",
			}),
			tokensRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "tokens_redeemed_total",
				Help:      "Total loyalty tokens burned by redemptions.",
			}),
			voucherTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "voucher_transitions_total",
				Help:      "Voucher status transitions by target status.",
			}, []string{"status"}),
			commitConflicts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "perkledger",
				Name:      "commit_conflicts_total",
				Help:      "Optimistic commit conflicts detected by the store.",
			}),
		}
		prometheus.MustRegister(
			metricsReg.rewardsIssued,
			metricsReg.tokensIssued,
			metricsReg.redemptions,
			metricsReg.tokensRedeemed,
			metricsReg.voucherTransitions,
			metricsReg.commitConflicts,
		)
	})
	return metricsReg
}

// RewardIssued records a successful issuance of the given token amount.
func RewardIssued(amount uint64) {
	m := Metrics()
	m.rewardsIssued.Inc()
	m.tokensIssued.Add(float64(amount))
}

// TokensRedeemed records a successful redemption burning the given amount.
func TokensRedeemed(amount uint64) {
	m := Metrics()
	m.redemptions.Inc()
	m.tokensRedeemed.Add(float64(amount))
}

// VoucherTransition records a voucher moving into the named status.
func VoucherTransition(status string) {
	Metrics().voucherTransitions.WithLabelValues(status).Inc()
}

// CommitConflict records an optimistic concurrency conflict.
func CommitConflict() {
	Metrics().commitConflicts.Inc()
}
