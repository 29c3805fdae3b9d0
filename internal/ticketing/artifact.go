// Package ticketing renders and stores the scannable code artifacts that
// back issued tickets.
package ticketing

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// BlobStore persists rendered artifacts and returns a URL a client can
// fetch them from.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Renderer encodes a ticket's secure token as a QR PNG and stores it.
type Renderer struct {
	store BlobStore
	size  int
}

const defaultCodeSize = 256

func NewRenderer(store BlobStore) *Renderer {
	return &Renderer{store: store, size: defaultCodeSize}
}

func (r *Renderer) Render(ctx context.Context, token string) (string, error) {
	png, err := qrcode.Encode(token, qrcode.Medium, r.size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	url, err := r.store.Put(ctx, token+".png", png)
	if err != nil {
		return "", fmt.Errorf("store qr: %w", err)
	}
	return url, nil
}
