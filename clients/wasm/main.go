//go:build js && wasm

// framegen WASM — client-side frame compositor.
// Compiled with: GOOS=js GOARCH=wasm go build -o framegen.wasm ./clients/wasm/
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"syscall/js"

	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/frame"
	"github.com/peicooks/framegen/pkg/photo"
	"github.com/peicooks/framegen/pkg/session"
)

// One session per page.
var (
	sess     *session.Session
	exporter *export.Exporter
)

func main() {
	comp, err := compositor.New("")
	if err != nil {
		fmt.Println("framegen WASM: compositor:", err)
		return
	}
	sess = session.New(comp, photo.NewLoader(photo.MaxBytes, nil), nil)
	exporter = export.New(export.Options{
		ShareURL: js.Global().Get("location").Get("href").String(),
	}, nil)

	fmt.Println("framegen WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goStyles", js.FuncOf(styles))
	js.Global().Set("goLoadPhoto", js.FuncOf(loadPhoto))
	js.Global().Set("goSelectStyle", js.FuncOf(selectStyle))
	js.Global().Set("goRenderFrame", js.FuncOf(renderFrame))
	js.Global().Set("goShare", js.FuncOf(share))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func errValue(err error) js.Value {
	return js.ValueOf("error: " + err.Error())
}

// goStyles() — catalog as JSON.
func styles(this js.Value, args []js.Value) interface{} {
	b, err := json.Marshal(frame.All())
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(string(b))
}

// goLoadPhoto(name, uint8Array, callback(err, previewBase64)) — decode
// asynchronously; a newer call supersedes an older one still decoding.
func loadPhoto(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need name, bytes, callback")
	}
	name := args[0].String()
	data := make([]byte, args[1].Get("length").Int())
	js.CopyBytesToGo(data, args[1])
	cb := args[2]

	_, done, err := sess.LoadAsync(name, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, photo.ErrOversizedInput) {
			return js.ValueOf("error: Image too large. Please choose an image under 5MB.")
		}
		return errValue(err)
	}

	go func() {
		err := <-done
		switch {
		case errors.Is(err, session.ErrStale):
			// A newer selection owns the canvas.
			return
		case err != nil:
			cb.Invoke(err.Error(), js.Null())
			return
		}
		preview, err := export.EncodePNG(sess.Photo().Preview)
		if err != nil {
			cb.Invoke(err.Error(), js.Null())
			return
		}
		cb.Invoke(js.Null(), base64.StdEncoding.EncodeToString(preview))
	}()
	return js.ValueOf("ok")
}

// goSelectStyle(id)
func selectStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need style id")
	}
	if err := sess.SelectStyle(args[0].String()); err != nil {
		return errValue(err)
	}
	return js.ValueOf("ok")
}

// goRenderFrame() — current frame as base64 PNG.
func renderFrame(this js.Value, args []js.Value) interface{} {
	img, err := sess.Frame()
	if err != nil {
		return errValue(err)
	}
	a, err := exporter.Download(img)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(a.Data))
}

// goShare(callback(resultJSON)) — navigator.share with clipboard fallback.
func share(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need callback")
	}
	cb := args[0]
	img, err := sess.Frame()
	if err != nil {
		return errValue(err)
	}

	go func() {
		res, err := exporter.Share(context.Background(), img, navigatorSharer{}, navigatorClipboard{})
		if err != nil {
			cb.Invoke(err.Error())
			return
		}
		b, _ := json.Marshal(res)
		cb.Invoke(string(b))
	}()
	return js.ValueOf("ok")
}

// ── Browser share & clipboard ──

type navigatorSharer struct{}

func toJSShareData(req export.ShareRequest) js.Value {
	files := js.Global().Get("Array").New()
	for _, a := range req.Files {
		u8 := js.Global().Get("Uint8Array").New(len(a.Data))
		js.CopyBytesToJS(u8, a.Data)
		opts := map[string]interface{}{"type": a.ContentType}
		blob := js.Global().Get("Blob").New([]interface{}{u8}, opts)
		files.Call("push", js.Global().Get("File").New([]interface{}{blob}, a.Filename, opts))
	}
	return js.ValueOf(map[string]interface{}{
		"title": req.Title,
		"text":  req.Text,
		"files": files,
	})
}

func (navigatorSharer) CanShare(req export.ShareRequest) bool {
	nav := js.Global().Get("navigator")
	if nav.Get("share").IsUndefined() || nav.Get("canShare").IsUndefined() {
		return false
	}
	return nav.Call("canShare", toJSShareData(req)).Bool()
}

func (navigatorSharer) Share(ctx context.Context, req export.ShareRequest) error {
	return await(ctx, js.Global().Get("navigator").Call("share", toJSShareData(req)))
}

type navigatorClipboard struct{}

func (navigatorClipboard) WriteText(s string) error {
	cb := js.Global().Get("navigator").Get("clipboard")
	if cb.IsUndefined() {
		return errors.New("clipboard unavailable")
	}
	return await(context.Background(), cb.Call("writeText", s))
}

// await blocks the calling goroutine until promise settles.
func await(ctx context.Context, promise js.Value) error {
	done := make(chan error, 1)
	onOK := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		done <- nil
		return nil
	})
	onErr := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "promise rejected"
		if len(args) > 0 && !args[0].IsUndefined() {
			msg = args[0].Call("toString").String()
		}
		done <- fmt.Errorf("%w: %s", export.ErrShareCanceled, msg)
		return nil
	})
	defer onOK.Release()
	defer onErr.Release()

	promise.Call("then", onOK, onErr)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
