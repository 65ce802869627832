package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
kafka_producer:
  brokers: 127.0.0.1:9092
grpc:
  endpoint: localhost:10000
  insecure: true
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:10000", c.Grpc.Endpoint)
	assert.True(t, c.Grpc.Insecure)
	assert.Equal(t, "jupiter-entity-changes", c.KafkaProducerConf.Topics.EntityChanges)
	assert.Equal(t, 1, c.KafkaProducerConf.Partitions.EntityChanges)
	assert.Equal(t, 60, c.ProgressConf.RecentThresholdSec)
	assert.Equal(t, 7, c.ProgressConf.RetainDays)
	assert.Equal(t, 200, c.Processor.BlockChanSize)
	assert.Equal(t, 3, c.Grpc.ReconnectIntervalSec)
	assert.Equal(t, 600, c.TimeConf.EventSendTimeoutMs)
	assert.Equal(t, "jupiter-account-changes", c.KafkaProducerConf.Topics.AccountChanges)
	assert.Equal(t, 1, c.KafkaProducerConf.Partitions.AccountChanges)
	assert.Equal(t, 1000, c.Processor.AccountChanSize)
	assert.True(t, c.Processor.EnableAccounts)
	assert.Equal(t, "console", c.LogConf.Format)
	assert.Equal(t, "info", c.LogConf.Level)
}

func TestLoad_KeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
logger:
  format: json
  level: debug
kafka_producer:
  brokers: a:9092,b:9092
  partitions:
    entity_changes: 12
grpc:
  endpoint: x:443
  reconnect_interval_sec: 9
processor:
  enable_accounts: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, c.KafkaProducerConf.Partitions.EntityChanges)
	assert.Equal(t, 9, c.Grpc.ReconnectIntervalSec)
	assert.False(t, c.Processor.EnableAccounts)
	assert.Equal(t, 200, c.Processor.BlockChanSize)

	opt := c.LogConf.ToLogOption()
	assert.Equal(t, "json", opt.Format)
	assert.Equal(t, "debug", opt.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "grpc: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "grpc:\n  endpoint: x:443\n"))
	assert.ErrorContains(t, err, "kafka_producer.brokers")
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "etc", "grpc.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, c.KafkaProducerConf.Partitions.EntityChanges)
	assert.Equal(t, ":9100", c.MetricsAddr)
	assert.Equal(t, 8, c.KafkaProducerConf.Partitions.AccountChanges)
}
