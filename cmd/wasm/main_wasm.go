//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/jun/gophboard/internal/geometry"
	"github.com/jun/gophboard/internal/model"
	"github.com/jun/gophboard/internal/sync"
)

func rectToJS(r geometry.Rect) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("x", r.X)
	obj.Set("y", r.Y)
	obj.Set("width", r.Width)
	obj.Set("height", r.Height)
	return obj
}

func main() {
	// format: normalizeDragRect(x1, y1, x2, y2) -> {x, y, width, height}
	normalizeFunc := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != 4 {
			return nil
		}
		r := geometry.NormalizeDragRect(
			geometry.Point{X: args[0].Float(), Y: args[1].Float()},
			geometry.Point{X: args[2].Float(), Y: args[3].Float()},
		)
		return rectToJS(r)
	})

	// format: objectBounds(objectJSON) -> {x, y, width, height}
	boundsFunc := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != 1 {
			return nil
		}
		var obj model.CanvasObject
		if err := json.Unmarshal([]byte(args[0].String()), &obj); err != nil {
			return nil
		}
		return rectToJS(geometry.BoundsOf(&obj))
	})

	// format: marqueeSelect(x1, y1, x2, y2, objectsJSON) -> array of ids
	// Pure geometry: lock filtering and lease acquisition stay with the
	// selection controller.
	marqueeFunc := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != 5 {
			return nil
		}
		var objects []model.CanvasObject
		if err := json.Unmarshal([]byte(args[4].String()), &objects); err != nil {
			return nil
		}
		marquee := geometry.NormalizeDragRect(
			geometry.Point{X: args[0].Float(), Y: args[1].Float()},
			geometry.Point{X: args[2].Float(), Y: args[3].Float()},
		)

		ids := js.Global().Get("Array").New()
		i := 0
		for idx := range objects {
			if geometry.Contains(marquee, geometry.BoundsOf(&objects[idx])) {
				ids.SetIndex(i, objects[idx].ID)
				i++
			}
		}
		return ids
	})

	// format: decodeObject(objectJSON) -> sanitized object JSON, or null for
	// an unknown shape type
	decodeFunc := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) != 1 {
			return nil
		}
		var raw model.CanvasObject
		if err := json.Unmarshal([]byte(args[0].String()), &raw); err != nil {
			return nil
		}
		decoded, ok := sync.Decode(raw)
		if !ok {
			return nil
		}
		out, err := json.Marshal(decoded)
		if err != nil {
			return nil
		}
		return string(out)
	})

	js.Global().Set("normalizeDragRect", normalizeFunc)
	js.Global().Set("objectBounds", boundsFunc)
	js.Global().Set("marqueeSelect", marqueeFunc)
	js.Global().Set("decodeObject", decodeFunc)

	fmt.Println("GophBoard Core Wasm Initialized")

	// Prevent the function from returning, which would exit the Wasm module
	select {}
}
