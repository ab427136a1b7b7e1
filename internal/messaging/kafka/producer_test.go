package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Publish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var body map[string]string
		if err := json.Unmarshal(val, &body); err != nil {
			return err
		}
		if body["order_id"] != "order-1" {
			return errors.New("unexpected body")
		}
		return nil
	})

	producer := newProducer(sp)
	err := producer.Publish(TopicOrderEvents, "order-1", map[string]string{"order_id": "order-1"}, map[string]string{HeaderEventType: "x"})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestProducer_PublishError(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := newProducer(sp)
	err := producer.Publish(TopicOrderEvents, "order-1", struct{}{}, nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestProducer_PublishUnmarshalable(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	producer := newProducer(sp)

	err := producer.Publish(TopicOrderEvents, "k", make(chan int), nil)
	assert.Error(t, err)
	require.NoError(t, producer.Close())
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	assert.Error(t, err)
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := newSaramaConfig(ProducerConfig{MaxRetries: 9})
	assert.Equal(t, defaultClientID, cfg.ClientID)
	assert.Equal(t, 9, cfg.Producer.Retry.Max)
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	require.NoError(t, cfg.Validate())
}

func TestRecordHeadersSorted(t *testing.T) {
	headers := recordHeaders(map[string]string{"b": "2", "a": "1"})
	require.Len(t, headers, 2)
	assert.Equal(t, "a", string(headers[0].Key))
	assert.Nil(t, recordHeaders(nil))
}
