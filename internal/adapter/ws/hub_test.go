package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

func TestHub_PublishReachesClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Accept(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	tmpl := &domain.Template{ID: uuid.New(), OwnerID: uuid.New(), OwnerType: domain.OwnerTypeGroup, Name: "Weekly"}
	require.NoError(t, hub.Publish(ctx, domain.NewTemplateEvent(domain.EventTemplateCreated, tmpl)))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var payload events.TemplateEventPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "template.created", payload.Type)
	assert.Equal(t, tmpl.ID.String(), payload.TemplateID)
	assert.Equal(t, "Weekly", payload.Name)

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub()
	err := hub.Publish(context.Background(), domain.NewTemplateEvent(domain.EventTemplateDeleted, &domain.Template{ID: uuid.New()}))
	assert.NoError(t, err)
}
