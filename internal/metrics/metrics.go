// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records engine activity counters
type Collector struct {
	commandsRouted  *prometheus.CounterVec
	commandErrors   prometheus.Counter
	messagesPurged  prometheus.Counter
	purgeSkipped    prometheus.Counter
	remindersSent   *prometheus.CounterVec
	logBatchesSent  prometheus.Counter
	logBatchFailed  prometheus.Counter
	rankSyncs       *prometheus.CounterVec
	confirmOutcomes *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commandsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altiora_commands_routed_total",
			Help: "Commands dispatched, by command name",
		}, []string{"command"}),
		commandErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altiora_command_errors_total",
			Help: "Command handlers that returned an error or panicked",
		}),
		messagesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altiora_messages_purged_total",
			Help: "Messages deleted by purge commands",
		}),
		purgeSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altiora_purge_skipped_total",
			Help: "Messages skipped by purge for exceeding the age limit",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altiora_reminders_sent_total",
			Help: "Reminder notifications sent, by kind",
		}, []string{"kind"}),
		logBatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altiora_log_batches_sent_total",
			Help: "Log batches flushed to the log channel",
		}),
		logBatchFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altiora_log_batches_failed_total",
			Help: "Log batches that fell back to console output",
		}),
		rankSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altiora_rank_syncs_total",
			Help: "Rank role synchronizations, by result",
		}, []string{"result"}),
		confirmOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altiora_confirmations_total",
			Help: "Confirmation workflow resolutions, by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.commandsRouted,
		c.commandErrors,
		c.messagesPurged,
		c.purgeSkipped,
		c.remindersSent,
		c.logBatchesSent,
		c.logBatchFailed,
		c.rankSyncs,
		c.confirmOutcomes,
	)

	return c
}

// RecordCommand records one dispatched command
func (c *Collector) RecordCommand(name string) {
	c.commandsRouted.WithLabelValues(name).Inc()
}

// RecordCommandError records a failed or panicked handler
func (c *Collector) RecordCommandError() {
	c.commandErrors.Inc()
}

// RecordPurge records a purge result
func (c *Collector) RecordPurge(deleted, skipped int) {
	c.messagesPurged.Add(float64(deleted))
	c.purgeSkipped.Add(float64(skipped))
}

// RecordReminder records one sent reminder of the given kind
func (c *Collector) RecordReminder(kind string) {
	c.remindersSent.WithLabelValues(kind).Inc()
}

// RecordLogBatch records one flushed log batch
func (c *Collector) RecordLogBatch(ok bool) {
	if ok {
		c.logBatchesSent.Inc()
	} else {
		c.logBatchFailed.Inc()
	}
}

// RecordRankSync records one rank sync attempt
func (c *Collector) RecordRankSync(ok bool) {
	c.rankSyncs.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// RecordConfirmation records one confirmation resolution
func (c *Collector) RecordConfirmation(outcome string) {
	c.confirmOutcomes.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
