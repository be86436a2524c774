package aws

import "encoding/json"

// snsEnvelope is the body SQS receives from an SNS subscription without raw delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// eventBridgeEnvelope is the body SQS receives from an EventBridge rule target.
type eventBridgeEnvelope struct {
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// UnwrapMessage strips SNS and EventBridge envelopes from an SQS body and
// returns the innermost payload. Bodies that are not wrapped come back as is.
func UnwrapMessage(body []byte) []byte {
	for i := 0; i < 2; i++ {
		var sns snsEnvelope
		if err := json.Unmarshal(body, &sns); err == nil && sns.Type == "Notification" && sns.Message != "" {
			body = []byte(sns.Message)
			continue
		}
		var eb eventBridgeEnvelope
		if err := json.Unmarshal(body, &eb); err == nil && eb.DetailType != "" && len(eb.Detail) > 0 {
			body = eb.Detail
			continue
		}
		break
	}
	return body
}

func peekEventType(message []byte) string {
	var m struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &m); err != nil {
		return ""
	}
	return m.Type
}
