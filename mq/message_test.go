package mq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessageBodyAndID(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"ids":["42"],"msg":"Messages put on queue."}`))
	}))

	id, err := client.PostMessage(context.Background(), "q", "hello")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/3/projects/proj/queues/q/messages", gotPath)
	assert.Equal(t, map[string]any{
		"messages": []any{map[string]any{
			"body":       "hello",
			"timeout":    float64(60),
			"delay":      float64(0),
			"expires_in": float64(604800),
		}},
	}, gotBody)
}

func TestPostMessagesAppliesDefaults(t *testing.T) {
	var gotBody struct {
		Messages []Message `json:"messages"`
	}
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"ids":["1","2"]}`))
	}))

	ids, err := client.PostMessages(context.Background(), "q",
		Message{Body: "a"},
		Message{Body: "b", Timeout: 120, Delay: 10, ExpiresIn: 3600},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, NewMessage("a"), gotBody.Messages[0])
	assert.Equal(t, Message{Body: "b", Timeout: 120, Delay: 10, ExpiresIn: 3600}, gotBody.Messages[1])
}

func TestPostMessagesRejectsExcessiveExpiry(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	_, err := client.PostMessages(context.Background(), "q", Message{Body: "a", ExpiresIn: MaxExpiresIn + 1})
	assert.Error(t, err)
}

func TestPostMessagesRejectsEmptyBatch(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	_, err := client.PostMessages(context.Background(), "q")
	assert.Error(t, err)
}

func TestReserveThenDeleteCarriesReservationID(t *testing.T) {
	var deleteBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/3/projects/proj/queues/q/reservations":
			w.Write([]byte(`{"messages":[{"id":"6","body":"hi","reserved_count":1,"reservation_id":"res-abc"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/3/projects/proj/queues/q/messages/6":
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &deleteBody))
			w.Write([]byte(`{"msg":"Deleted"}`))
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))

	msg, err := client.ReserveMessage(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "6", msg.ID)
	assert.Equal(t, "res-abc", msg.ReservationID)

	require.NoError(t, client.DeleteReserved(context.Background(), "q", msg))
	assert.Equal(t, map[string]any{"reservation_id": "res-abc"}, deleteBody)
}

func TestReserveMessagesSendsN(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"messages":[]}`))
	}))

	msgs, err := client.ReserveMessages(context.Background(), "q", 7,
		WithReservationTimeout(90), WithWait(15))
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, map[string]any{
		"n":       float64(7),
		"timeout": float64(90),
		"wait":    float64(15),
	}, gotBody)
}

func TestReserveMessagesRejectsNonPositiveN(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	_, err := client.ReserveMessages(context.Background(), "q", 0)
	assert.Error(t, err)
}

func TestReserveMessageEmptyQueue(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))

	msg, err := client.ReserveMessage(context.Background(), "q")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestGetMessageByID(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/3/projects/proj/queues/q/messages/5", r.URL.Path)
		w.Write([]byte(`{"message":{"id":"5","body":"stored","reserved_count":2}}`))
	}))

	msg, err := client.GetMessageByID(context.Background(), "q", "5")
	require.NoError(t, err)
	assert.Equal(t, "5", msg.ID)
	assert.Equal(t, "stored", msg.Body)
	assert.Equal(t, 2, msg.ReservedCount)
}

func TestPeekDoesNotReserve(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/3/projects/proj/queues/q/messages", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("n"))
		w.Write([]byte(`{"messages":[{"id":"1","body":"x"},{"id":"2","body":"y"}]}`))
	}))

	msgs, err := client.PeekMessages(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
}

func TestPeekMessageEmptyQueue(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))

	msg, err := client.PeekMessage(context.Background(), "q")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDeleteMessageSendsEmptyObject(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(raw))
		w.Write([]byte(`{"msg":"Deleted"}`))
	}))

	require.NoError(t, client.DeleteMessage(context.Background(), "q", "5"))
}

func TestDeleteReservedRequiresReservation(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	err := client.DeleteReserved(context.Background(), "q", &ReservedMessage{
		StoredMessage: StoredMessage{ID: "5", Body: "x"},
	})
	assert.ErrorIs(t, err, ErrNoReservation)

	err = client.DeleteReserved(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrNoReservation)
}

func TestDeleteMessagesBatchBody(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/3/projects/proj/queues/q/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"msg":"Deleted"}`))
	}))

	require.NoError(t, client.DeleteMessages(context.Background(), "q", []string{"a", "b"}))
	assert.Equal(t, map[string]any{
		"ids": []any{
			map[string]any{"id": "a"},
			map[string]any{"id": "b"},
		},
	}, gotBody)
}

func TestTouchRotatesReservationID(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/projects/proj/queues/q/messages/6/touch", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"reservation_id":"res-new","msg":"Touched"}`))
	}))

	msg := &ReservedMessage{
		StoredMessage: StoredMessage{ID: "6", Body: "hi"},
		ReservationID: "res-old",
	}
	require.NoError(t, client.TouchMessage(context.Background(), "q", msg))
	assert.Equal(t, map[string]any{"reservation_id": "res-old"}, gotBody)
	assert.Equal(t, "res-new", msg.ReservationID, "touch must adopt the rotated reservation id")
}

func TestTouchRequiresReservation(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	err := client.TouchMessage(context.Background(), "q", &ReservedMessage{})
	assert.ErrorIs(t, err, ErrNoReservation)
}

func TestReleaseOmitsDelayByDefault(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/projects/proj/queues/q/messages/6/release", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"msg":"Released"}`))
	}))

	msg := &ReservedMessage{
		StoredMessage: StoredMessage{ID: "6"},
		ReservationID: "res-abc",
	}
	require.NoError(t, client.ReleaseMessage(context.Background(), "q", msg))
	assert.Equal(t, map[string]any{"reservation_id": "res-abc"}, gotBody)
	assert.NotContains(t, gotBody, "delay")
}

func TestReleaseIncludesGivenDelay(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"msg":"Released"}`))
	}))

	msg := &ReservedMessage{
		StoredMessage: StoredMessage{ID: "6"},
		ReservationID: "res-abc",
	}
	require.NoError(t, client.ReleaseMessage(context.Background(), "q", msg, WithDelay(120)))
	assert.Equal(t, map[string]any{
		"reservation_id": "res-abc",
		"delay":          float64(120),
	}, gotBody)
}

func TestReleaseRequiresReservation(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	}))

	err := client.ReleaseMessage(context.Background(), "q", &ReservedMessage{})
	assert.ErrorIs(t, err, ErrNoReservation)
}

func TestStaleReservationSurfacesAsAPIError(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"msg":"Reservation has timed out"}`))
	}))

	msg := &ReservedMessage{
		StoredMessage: StoredMessage{ID: "6"},
		ReservationID: "res-stale",
	}
	err := client.DeleteReserved(context.Background(), "q", msg)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
