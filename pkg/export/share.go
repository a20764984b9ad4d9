package export

import (
	"context"
	"errors"
	"image"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// ErrShareCanceled is what a Sharer returns when the user dismisses the
// share sheet. Any other error is treated the same way.
var ErrShareCanceled = errors.New("share canceled")

// ShareRequest is handed to the host's native share facility.
type ShareRequest struct {
	Title string
	Text  string
	Files []Asset
}

// Sharer is a native share facility (for example navigator.share).
type Sharer interface {
	// CanShare reports whether req, including its files, is accepted.
	CanShare(req ShareRequest) bool
	Share(ctx context.Context, req ShareRequest) error
}

// Clipboard receives the fallback link.
type Clipboard interface {
	WriteText(text string) error
}

// ShareMethod says how a share completed.
type ShareMethod string

const (
	SharedNatively ShareMethod = "native"
	SharedLink     ShareMethod = "clipboard"
)

// ShareResult is always a success from the user's point of view.
type ShareResult struct {
	Method  ShareMethod `json:"method"`
	Message string      `json:"message"`
	Link    string      `json:"link,omitempty"`
}

// Request builds the share request for a frame.
func (e *Exporter) Request(img image.Image) (ShareRequest, error) {
	asset, err := e.Download(img)
	if err != nil {
		return ShareRequest{}, err
	}
	return ShareRequest{
		Title: e.opts.ShareTitle,
		Text:  e.opts.ShareText,
		Files: []Asset{asset},
	}, nil
}

// Share offers the frame to sharer. If sharer is nil, rejects image files,
// or fails (including user cancel), the share link is written to clip
// instead. Only an encoding failure is returned as an error.
func (e *Exporter) Share(ctx context.Context, img image.Image, sharer Sharer, clip Clipboard) (ShareResult, error) {
	req, err := e.Request(img)
	if err != nil {
		return ShareResult{}, err
	}

	if sharer != nil && sharer.CanShare(req) {
		err := sharer.Share(ctx, req)
		if err == nil {
			return ShareResult{Method: SharedNatively, Message: "Shared!"}, nil
		}
		e.log.Debug("native share failed, copying link", zap.Error(err))
	}

	return e.CopyLink(clip), nil
}

// CopyLink writes the share link to clip. A clipboard failure is logged but
// still reported as copied.
func (e *Exporter) CopyLink(clip Clipboard) ShareResult {
	if clip != nil {
		if err := clip.WriteText(e.opts.ShareURL); err != nil {
			e.log.Warn("clipboard write failed", zap.Error(err))
		}
	}
	return ShareResult{Method: SharedLink, Message: "Link copied to clipboard!", Link: e.opts.ShareURL}
}

// LinkQR returns a PNG QR code of the share link, size px square.
func (e *Exporter) LinkQR(size int) (Asset, error) {
	if size <= 0 {
		size = 256
	}
	data, err := qrcode.Encode(e.opts.ShareURL, qrcode.Medium, size)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Filename: "pei-cooks-link.png", ContentType: ContentTypePNG, Data: data}, nil
}
