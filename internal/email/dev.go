package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// DevTransport writes each message to a JSON file instead of sending it.
type DevTransport struct {
	dir string
	now func() time.Time
}

// NewDevTransport returns a Transport that stores messages under dir. The
// directory is created on first send.
func NewDevTransport(dir string) *DevTransport {
	return &DevTransport{dir: dir, now: time.Now}
}

type devRecord struct {
	Timestamp  string    `json:"timestamp"`
	ServiceID  string    `json:"service_id"`
	TemplateID string    `json:"template_id"`
	Variables  Variables `json:"variables"`
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func (d *DevTransport) Send(_ context.Context, msg Message) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return &TransportError{Provider: ProviderDev, Message: "create directory: " + err.Error(), Err: err}
	}

	now := d.now()
	data, err := json.MarshalIndent(devRecord{
		Timestamp:  now.Format(time.RFC3339),
		ServiceID:  msg.ServiceID,
		TemplateID: msg.TemplateID,
		Variables:  msg.Variables,
	}, "", "  ")
	if err != nil {
		return &TransportError{Provider: ProviderDev, Message: "marshal message: " + err.Error(), Err: err}
	}

	name := fmt.Sprintf("%s_%s.json",
		now.Format("2006_01_02_150405.000000"),
		unsafeFilename.ReplaceAllString(msg.TemplateID, "_"),
	)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return &TransportError{Provider: ProviderDev, Message: "write message: " + err.Error(), Err: err}
	}
	return nil
}
