package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"jupiter-dex-sol/internal/logic/core"
)

const namespace = "jupiter_dex"

// Observer 将处理过程中的决策点计数到 Prometheus
type Observer struct {
	txSkipped *prometheus.CounterVec
	malformed prometheus.Counter
	matches   *prometheus.CounterVec
	deltas    *prometheus.CounterVec
	noSwap    *prometheus.CounterVec
	rows      *prometheus.CounterVec
}

// NewObserver 创建并注册指标，reg 为空时使用默认 registry
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		txSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tx_skipped_total", Help: "Transactions skipped, by reason.",
		}, []string{"reason"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "malformed_instructions_total", Help: "Instructions skipped for out-of-range indices.",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dex_matches_total", Help: "Transactions matched to a registered program.",
		}, []string{"program", "via"}),
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "balance_deltas_total", Help: "Balance delta tuples computed, by direction.",
		}, []string{"direction"}),
		noSwap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "no_swap_total", Help: "Matched transactions without a qualifying swap.",
		}, []string{"reason"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rows_emitted_total", Help: "Entity rows created, by entity kind.",
		}, []string{"entity"}),
	}
	reg.MustRegister(o.txSkipped, o.malformed, o.matches, o.deltas, o.noSwap, o.rows)
	return o
}

func (o *Observer) TxSkipped(_ string, reason core.SkipReason) {
	o.txSkipped.WithLabelValues(string(reason)).Inc()
}

func (o *Observer) MalformedInstruction(string, uint16, uint16, error) {
	o.malformed.Inc()
}

func (o *Observer) MatchFound(_ string, m core.DexMatch) {
	via := "program"
	if m.ByAccount {
		via = "account"
	}
	o.matches.WithLabelValues(m.ProgramID.String(), via).Inc()
}

func (o *Observer) DeltaComputed(_ string, deltas []core.BalanceDelta) {
	for _, d := range deltas {
		o.deltas.WithLabelValues(d.Direction.String()).Inc()
	}
}

func (o *Observer) NoSwap(_ string, reason string) {
	o.noSwap.WithLabelValues(reason).Inc()
}

func (o *Observer) RowEmitted(kind, _ string) {
	o.rows.WithLabelValues(kind).Inc()
}
