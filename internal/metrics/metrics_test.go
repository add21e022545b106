package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestObserveImport(t *testing.T) {
	m := NewForRegistry(prometheus.NewRegistry())

	m.ObserveImport("saved", true, 2*time.Second)
	m.ObserveImport("saved", false, time.Second)
	m.ObserveImport("duplicate", true, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AvatarsTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvatarsTotal.WithLabelValues("false")))
}

func TestObserveNotion(t *testing.T) {
	m := NewForRegistry(prometheus.NewRegistry())

	m.ObserveNotion("create_page", 200)
	m.ObserveNotion("create_page", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotionRequestsTotal.WithLabelValues("create_page", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotionRequestsTotal.WithLabelValues("create_page", "none")))
}

func TestObserveLLM(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewForRegistry(reg)

	m.ObserveLLM("moonshot", time.Second, nil)
	m.ObserveLLM("moonshot", time.Second, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.LLMRequestDuration))
}

func TestObserveHTTP(t *testing.T) {
	m := NewForRegistry(prometheus.NewRegistry())

	m.ObserveHTTP("POST", "/save", 409, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/save", "409")))
}
