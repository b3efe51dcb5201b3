package services

import "github.com/prometheus/client_golang/prometheus"

var (
	purchasesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_purchases_created_total",
			Help: "Purchases whose Pix charge was created, by plan.",
		},
		[]string{"plan"},
	)
	purchaseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_purchase_failures_total",
			Help: "Purchase initiation failures, by stage.",
		},
		[]string{"stage"},
	)
	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_purchase_reconciliations_total",
			Help: "Reconciliation outcomes, by resulting status.",
		},
		[]string{"status"},
	)
	tokensCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "token_purchase_credits_total",
		Help: "Purchases whose tokens were credited.",
	})
	creditFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "token_purchase_credit_failures_total",
		Help: "Approved purchases whose credit step failed.",
	})
)

func init() {
	prometheus.MustRegister(purchasesCreated, purchaseFailures, reconciliations, tokensCredited, creditFailures)
}
