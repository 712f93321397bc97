package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWire(t *testing.T, line string) WireMetric {
	t.Helper()
	wire, err := ParseWire(line)
	require.NoError(t, err)
	return wire
}

func labelValue(t *testing.T, m Metric, key string) any {
	t.Helper()
	for _, l := range m.Labels {
		if l.Descriptor.Key == key {
			return l.Value
		}
	}
	t.Fatalf("label %q not found", key)
	return nil
}

func TestFromWireDBMSKey(t *testing.T) {
	wire := mustWire(t, "web1.dbms.pool.active_threads 4 1000")
	m := FromWire(wire, "10.0.0.5", 900)

	assert.Equal(t, "pool/active_threads", m.Key)
	assert.Equal(t, SubsystemDBMS, m.Subsystem)
	assert.Equal(t, KindGauge, m.Kind)
	assert.Equal(t, ValueInt, m.ValueType)
	assert.Equal(t, "web1", m.Origin.Label)
	assert.Equal(t, "10.0.0.5", m.Origin.Host)
	assert.Equal(t, "dbms", labelValue(t, m, "neo4j_system"))
	assert.Equal(t, "10.0.0.5", labelValue(t, m, "neo4j_instance_name"))
	assert.Equal(t, "web1", labelValue(t, m, "neo4j_label"))
}

func TestFromWireDatabaseKey(t *testing.T) {
	wire := mustWire(t, "web1.database.neo4j.transaction.committed 12 1000")
	m := FromWire(wire, "10.0.0.5", 900)

	assert.Equal(t, "transaction/committed", m.Key)
	assert.Equal(t, SubsystemDatabase, m.Subsystem)
	assert.Equal(t, KindCounter, m.Kind)
	assert.Equal(t, "neo4j", labelValue(t, m, "neo4j_db_name"))
	assert.Equal(t, "database", labelValue(t, m, "neo4j_system"))
}

func TestFromWireKindIsTerminalSegmentOnly(t *testing.T) {
	counter := FromWire(mustWire(t, "web1.dbms.page_cache.evictions 9 1000"), "h", 0)
	assert.Equal(t, KindCounter, counter.Kind)

	gauge := FromWire(mustWire(t, "web1.dbms.vm.heap_used 9 1000"), "h", 0)
	assert.Equal(t, KindGauge, gauge.Kind)
}

func TestFromWireValueTypeFollowsNativeType(t *testing.T) {
	i := FromWire(mustWire(t, "web1.dbms.x.count 9 1000"), "h", 0)
	assert.Equal(t, ValueInt, i.ValueType)

	f := FromWire(mustWire(t, "web1.dbms.x.count 9.5 1000"), "h", 0)
	assert.Equal(t, ValueFloat, f.ValueType)
}

func TestFromWireFirstSeenNeverPostdatesSample(t *testing.T) {
	wire := mustWire(t, "web1.dbms.x.y 1 500")

	early := FromWire(wire, "h", 400)
	assert.Equal(t, 400.0, early.Origin.FirstSeenUnix)

	// Clock skew: the registry thinks the client is younger than its
	// first sample. The sample timestamp wins.
	late := FromWire(wire, "h", 600)
	assert.Equal(t, 500.0, late.Origin.FirstSeenUnix)
}

func TestFromWireIsDeterministic(t *testing.T) {
	wire := mustWire(t, "web1.database.orders.log.appended_bytes 4096 1000")
	a := FromWire(wire, "10.0.0.5", 900)
	b := FromWire(wire, "10.0.0.5", 900)

	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.ValueType, b.ValueType)
	assert.Equal(t, a.Labels, b.Labels)
}

func TestDescriptorOf(t *testing.T) {
	m := FromWire(mustWire(t, "web1.dbms.page_cache.hits 3 1000"), "h", 0)
	d := DescriptorOf(m)

	assert.Equal(t, "page_cache/hits", d.Key)
	assert.Equal(t, KindCounter, d.Kind)
	assert.Equal(t, ValueInt, d.ValueType)
	require.Len(t, d.Labels, 3)
	assert.Equal(t, ClientNameLabel, d.Labels[0])
}
