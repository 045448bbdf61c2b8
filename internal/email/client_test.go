package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "Niñamar <hola@ninamar.co>", time.Second)
	id, err := client.Send(context.Background(), &Message{
		To:      []string{"ana@example.com"},
		Subject: "Hola",
		HTML:    "<p>Hola</p>",
		Headers: map[string]string{"List-Unsubscribe": "<https://ninamar.co/u>"},
	})

	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, "Niñamar <hola@ninamar.co>", got.From)
	assert.Equal(t, "<https://ninamar.co/u>", got.Headers["List-Unsubscribe"])
}

func TestSendErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "x@y.z", time.Second)

	_, err := client.Send(context.Background(), &Message{To: []string{"a@b.c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")

	_, err = client.Send(context.Background(), &Message{})
	assert.ErrorIs(t, err, ErrNoRecipients)
}
