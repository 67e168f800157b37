package calc

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics()
	metrics.MustRegister(registry)

	b := newTestBook(t, WithMetrics(metrics))

	t.Run("evaluation", func(t *testing.T) {
		b.formula("A1", "=1+1")
		assert.Equal(t, 2.0, b.num("A1"))
		assert.Equal(t, 1, testutil.CollectAndCount(metrics.evaluationTime))
		assert.Positive(t, testutil.CollectAndCount(metrics.invalidatedFormulas))
	})

	t.Run("circular reference", func(t *testing.T) {
		b.formula("B1", "=B1+1")
		_, err := b.engine.GetValue(b.addr("B1"))
		var cycle *CircularReferenceError
		require.ErrorAs(t, err, &cycle)
		assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.circularReferences), 1.0)
		assert.Equal(t, 2, testutil.CollectAndCount(metrics.evaluationTime))
		require.NoError(t, b.engine.Clear(b.addr("B1")))
	})

	t.Run("structural edits", func(t *testing.T) {
		require.NoError(t, b.engine.InsertRows(b.sheet, 0, 1))
		require.NoError(t, b.engine.InsertRows(b.sheet, 0, 1))
		require.NoError(t, b.engine.DeleteColumns(b.sheet, 5, 1))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.structuralEdits.WithLabelValues("insert_rows")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.structuralEdits.WithLabelValues("delete_columns")))
	})

	t.Run("recalculation", func(t *testing.T) {
		require.NoError(t, b.engine.RecalculateAll())
		assert.Equal(t, 1, testutil.CollectAndCount(metrics.recalculationTime))
	})

	families, err := registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "calc_engine_cell_evaluation_duration_seconds")
	assert.Contains(t, names, "calc_engine_recalculation_duration_seconds")
	assert.Contains(t, names, "calc_engine_circular_references_total")
	assert.Contains(t, names, "calc_engine_structural_edits_total")
	assert.Contains(t, names, "calc_engine_invalidated_formulas")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeEvaluation(0.1, errors.New("boom"))
		m.observeRecalculation(0.1)
		m.observeCircular()
		m.observeStructuralEdit("insert_rows")
		m.observeInvalidation(3)
	})
}
