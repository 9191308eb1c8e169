package monitoring

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{401, "4xx"},
		{503, "5xx"},
		{0, "error"},
		{600, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatusClass(tt.code), "code %d", tt.code)
	}
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(RenewalsTotal.WithLabelValues("success"))
	RenewalsTotal.WithLabelValues("success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RenewalsTotal.WithLabelValues("success")))

	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}
