package mq

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQueues(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/3/projects/proj/queues", r.URL.Path)
		w.Write([]byte(`{"queues":[{"name":"alpha"},{"name":"beta"}]}`))
	}))

	names, err := client.ListQueues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestListQueuesWithPaging(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get("per_page"))
		assert.Equal(t, "jobs-", q.Get("prefix"))
		assert.Equal(t, "jobs-17", q.Get("previous"))
		w.Write([]byte(`{"queues":[]}`))
	}))

	names, err := client.ListQueues(context.Background(),
		WithPerPage(50), WithQueuePrefix("jobs-"), WithPrevious("jobs-17"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestQueueInfoAndSize(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/projects/proj/queues/jobs", r.URL.Path)
		w.Write([]byte(`{"queue":{"project_id":"proj","name":"jobs","size":17,"total_messages":102}}`))
	}))

	info, err := client.QueueInfo(context.Background(), "jobs")
	require.NoError(t, err)
	assert.Equal(t, "jobs", info.Name)
	assert.Equal(t, 17, info.Size)
	assert.Equal(t, 102, info.TotalMessages)

	size, err := client.QueueSize(context.Background(), "jobs")
	require.NoError(t, err)
	assert.Equal(t, 17, size)
}

func TestClearQueue(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/3/projects/proj/queues/jobs/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(raw))
		w.Write([]byte(`{"msg":"Cleared"}`))
	}))

	require.NoError(t, client.ClearQueue(context.Background(), "jobs"))
}

func TestDeleteQueue(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/3/projects/proj/queues/jobs", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(raw))
		w.Write([]byte(`{"msg":"Deleted."}`))
	}))

	require.NoError(t, client.DeleteQueue(context.Background(), "jobs"))
}

func TestQueueNameEscaping(t *testing.T) {
	client := newTestClient(t, 0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/projects/proj/queues/my%20queue", r.URL.EscapedPath())
		w.Write([]byte(`{"queue":{"name":"my queue","size":0}}`))
	}))

	_, err := client.QueueInfo(context.Background(), "my queue")
	require.NoError(t, err)
}
