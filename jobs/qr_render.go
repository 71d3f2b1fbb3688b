package jobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hibiken/asynq"
	"github.com/skip2/go-qrcode"

	"github.com/backstage-events/backstage/internal/document"
	"github.com/backstage-events/backstage/internal/registry"
)

// qrSize is the rendered PNG edge length in pixels.
const qrSize = 256

// DocumentStore is the subset of the document store used by jobs.
type DocumentStore interface {
	Get(ctx context.Context, kind registry.Kind, id string) (document.Document, error)
	Patch(ctx context.Context, kind registry.Kind, id string, patch document.Document) (document.Document, error)
}

// QRRenderJob renders a QR code PNG for an event UTM's tracked link and
// stores it back on the UTM document.
type QRRenderJob struct {
	store  DocumentStore
	logger *slog.Logger
}

// NewQRRenderJob builds a QRRenderJob.
func NewQRRenderJob(store DocumentStore, logger *slog.Logger) *QRRenderJob {
	return &QRRenderJob{store: store, logger: logger}
}

// Handle processes TaskTypeUTMQRRender tasks.
func (j *QRRenderJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload UTMQRRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	utm, err := j.store.Get(ctx, registry.KindEventUTMs, payload.UTMID)
	if err != nil {
		// The UTM may have been deleted between enqueue and processing.
		if j.logger != nil {
			j.logger.Warn("utm missing for qr render", slog.String("utm_id", payload.UTMID))
		}
		return asynq.SkipRetry
	}

	link := trackedLink(utm)
	if link == "" {
		return asynq.SkipRetry
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("jobs: encode qr: %w", err)
	}

	_, err = j.store.Patch(ctx, registry.KindEventUTMs, payload.UTMID, document.Document{
		"qr_code": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
	return err
}

// trackedLink builds the UTM-tagged URL from the document fields.
func trackedLink(utm document.Document) string {
	base, _ := utm["url"].(string)
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, param := range []struct{ field, key string }{
		{"source", "utm_source"},
		{"medium", "utm_medium"},
		{"campaign", "utm_campaign"},
	} {
		if v, ok := utm[param.field].(string); ok && v != "" {
			q.Set(param.key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
