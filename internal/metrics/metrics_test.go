package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordSession("sprot", StatusCommitted)
	m.RecordSession("sprot", StatusCommitted)
	m.RecordSession("sprot", StatusFailed)
	m.RecordRows("sprot", "string", 40)
	m.RecordRows("sprot", "string", 2)
	m.RecordReclaimed("sprot", 1)
	m.RecordUnresolvedLink("pdb_atom", "uniprot")
	m.ObserveCommit("sprot", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("sprot", StatusCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("sprot", StatusFailed)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.RowsLoadedTotal.WithLabelValues("sprot", "string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsReclaimed.WithLabelValues("sprot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnresolvedLinksTotal.WithLabelValues("pdb_atom", "uniprot")))

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), "prs_rows_loaded_total")
	assert.Contains(t, buf.String(), "prs_commit_duration_seconds")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSession("x", StatusCommitted)
	m.RecordRows("x", "word", 1)
	m.RecordReclaimed("x", 1)
	m.RecordUnresolvedLink("x", "y")
	m.ObserveCommit("x", 1)
	assert.NoError(t, m.WriteText(&bytes.Buffer{}))
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.RecordSession("x", StatusCommitted)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsTotal.WithLabelValues("x", StatusCommitted)))
}
