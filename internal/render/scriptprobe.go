// internal/render/scriptprobe.go
package render

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// ProbeGlobals executes the page's inline scripts in a stubbed JS runtime and
// returns every non-standard global they assigned, stringified. The target
// site embeds product state in inline scripts before hydration; when a DOM
// chain comes up empty this recovers the value without a full render.
func ProbeGlobals(page *Page) map[string]string {
	vm := goja.New()

	// Minimal browser environment, just enough to capture data assignments.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{
		"location": map[string]interface{}{
			"href": page.URL(),
		},
	})
	vm.Set("location", map[string]interface{}{
		"href": page.URL(),
	})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	page.Root().Find("script").Each(func(i int, sel *goquery.Selection) {
		// Skip external scripts
		if _, exists := sel.Attr("src"); exists {
			return
		}
		if body := sel.Text(); body != "" {
			// Most scripts fail against the stubbed DOM; that is expected.
			_, _ = vm.RunString(body)
		}
	})

	globals := make(map[string]string)
	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		if val := vm.Get(key); val != nil {
			if exported := val.Export(); exported != nil {
				globals[key] = fmt.Sprintf("%v", exported)
			}
		}
	}

	if len(globals) > 0 {
		log.Debug().
			Str("url", page.URL()).
			Int("globals", len(globals)).
			Msg("Script probe recovered globals")
	}
	return globals
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "location": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
		"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
	}
	return standards[key]
}
