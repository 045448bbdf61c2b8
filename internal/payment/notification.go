package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// TopicPayment is the only notification topic reconciled against orders
const TopicPayment = "payment"

var ErrMissingPaymentID = errors.New("notification has no payment id")

// ID accepts both string and numeric JSON ids
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Notification is the webhook signal. It only identifies a payment; its details
// are always fetched from the gateway.
type Notification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID ID `json:"id"`
	} `json:"data"`
}

// ParseNotification reads the payment id from a JSON body or one of the query
// string forms (type + data.id, or topic + id). It returns the topic and id.
func ParseNotification(body []byte, query url.Values) (string, string, error) {
	var n Notification
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &n); err != nil {
			return "", "", err
		}
	}

	topic := firstNonEmpty(n.Type, n.Topic, query.Get("type"), query.Get("topic"))
	id := firstNonEmpty(n.Data.ID.String(), query.Get("data.id"), query.Get("id"))

	if topic == "" && strings.HasPrefix(n.Action, TopicPayment+".") {
		topic = TopicPayment
	}
	if id == "" {
		return topic, "", ErrMissingPaymentID
	}
	return topic, id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
