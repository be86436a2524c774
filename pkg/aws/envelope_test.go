package aws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrapMessage_SNSNotification(t *testing.T) {
	inner := `{"type":"checkout.session.completed"}`
	body, _ := json.Marshal(map[string]string{"Type": "Notification", "Message": inner})

	assert.JSONEq(t, inner, string(UnwrapMessage(body)))
}

func TestUnwrapMessage_EventBridgeDetail(t *testing.T) {
	body := []byte(`{"source":"aws.partner/stripe.com","detail-type":"checkout.session.completed","detail":{"id":"evt_1","type":"checkout.session.completed"}}`)

	assert.JSONEq(t, `{"id":"evt_1","type":"checkout.session.completed"}`, string(UnwrapMessage(body)))
}

func TestUnwrapMessage_EventBridgeInsideSNS(t *testing.T) {
	eb := `{"detail-type":"checkout.session.completed","detail":{"id":"evt_2"}}`
	body, _ := json.Marshal(map[string]string{"Type": "Notification", "Message": eb})

	assert.JSONEq(t, `{"id":"evt_2"}`, string(UnwrapMessage(body)))
}

func TestUnwrapMessage_PlainBody(t *testing.T) {
	body := []byte(`{"id":"evt_3","type":"checkout.session.completed"}`)

	assert.Equal(t, body, UnwrapMessage(body))
}

func TestPeekEventType(t *testing.T) {
	assert.Equal(t, "order_confirmed", peekEventType([]byte(`{"type":"order_confirmed"}`)))
	assert.Equal(t, "", peekEventType([]byte(`not json`)))
}

func TestMetricsClient_NilIsDisabled(t *testing.T) {
	var m *MetricsClient
	assert.False(t, m.IsEnabled())
	assert.NoError(t, m.RecordCount(context.Background(), MetricOrdersCreated, nil))
}
