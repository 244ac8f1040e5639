package capture

import (
	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
)

func init() {
	RegisterBackend(BackendChromedp, func(cfg Config, cat *catalog.Catalog, logger interfaces.Logger) (interfaces.Capturer, error) {
		return NewChromedpCapturer(cfg, cat, logger)
	})
	RegisterBackend(BackendStatic, func(cfg Config, cat *catalog.Catalog, logger interfaces.Logger) (interfaces.Capturer, error) {
		return NewStaticCapturer(cfg, cat, logger, nil)
	})
}
