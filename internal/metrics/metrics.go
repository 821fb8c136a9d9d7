// Package metrics counts encryption outcomes with Prometheus counters.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parley"

// Collector satisfies the gate and history observer interfaces.
type Collector struct {
	encrypted     prometheus.Counter
	fallbacks     *prometheus.CounterVec
	decrypted     prometheus.Counter
	decryptFailed prometheus.Counter
	locked        prometheus.Counter
}

// NewCollector registers its counters with reg. A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		encrypted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_encrypted_total",
			Help:      "Outgoing messages stored as envelopes.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encrypt_fallbacks_total",
			Help:      "Outgoing messages stored as plaintext while encryption was enabled.",
		}, []string{"reason"}),
		decrypted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_decrypted_total",
			Help:      "Stored envelopes decrypted for display.",
		}),
		decryptFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Stored envelopes that did not open under the session key.",
		}),
		locked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_locked_total",
			Help:      "Stored envelopes shown as locked because no key was held.",
		}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.encrypted, c.fallbacks, c.decrypted, c.decryptFailed, c.locked} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) MessageEncrypted()             { c.encrypted.Inc() }
func (c *Collector) EncryptFallback(reason string) { c.fallbacks.WithLabelValues(reason).Inc() }
func (c *Collector) MessageDecrypted()             { c.decrypted.Inc() }
func (c *Collector) DecryptFailed()                { c.decryptFailed.Inc() }
func (c *Collector) MessageLocked()                { c.locked.Inc() }

// WriteTextfile dumps g in the node exporter textfile format. The write is atomic.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
