package app

import (
	"net/http"

	"github.com/vk/wrangler/internal/verbs"
)

// coreModules configures the built-in verbs that depend on settings and
// appends caller supplied modules.
func coreModules(cfg *Config, extra []verbs.Module) []verbs.Module {
	modules := []verbs.Module{
		&verbs.FetchModule{Client: &http.Client{Timeout: cfg.FetchTimeout}},
	}
	return append(modules, extra...)
}
