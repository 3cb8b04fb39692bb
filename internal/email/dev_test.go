package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/email"
)

func TestDevTransport_WritesMessage(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outbox")
	tr := email.NewDevTransport(dir)

	err := tr.Send(context.Background(), email.Message{
		ServiceID:  "svc",
		TemplateID: "document/delivery",
		Variables:  email.Variables{"to_email": "c@example.com"},
	})
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "*_document_delivery.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "svc", rec["service_id"])
	assert.Equal(t, "document/delivery", rec["template_id"])
	assert.Equal(t, map[string]any{"to_email": "c@example.com"}, rec["variables"])
}
