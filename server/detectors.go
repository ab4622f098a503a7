package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hannes/pii-sanitizer/config"
	"github.com/hannes/pii-sanitizer/pii"
	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// BuildDetectors creates the detectors named in the configuration. The ONNX
// detector is wrapped in a model manager, which is returned separately so
// the server can expose reloads.
func BuildDetectors(cfg *config.Config) ([]detectors.Detector, *pii.ModelManager, error) {
	var (
		built        []detectors.Detector
		modelManager *pii.ModelManager
	)

	closeBuilt := func() {
		for _, d := range built {
			_ = d.Close()
		}
	}

	for _, name := range cfg.Detectors {
		var (
			d   detectors.Detector
			err error
		)

		switch name {
		case detectors.DetectorNameONNXModel:
			modelManager = pii.NewModelManager(cfg.ModelDirectory, nil)
			d = modelManager
		case detectors.DetectorNameModel:
			d, err = detectors.NewDetector(name, map[string]interface{}{
				"base_url": cfg.ModelBaseURL,
				"timeout":  time.Duration(cfg.ModelTimeoutMS) * time.Millisecond,
			})
		default:
			d, err = detectors.NewDetector(name, map[string]interface{}{})
		}

		if err != nil {
			closeBuilt()
			return nil, nil, fmt.Errorf("failed to create detector %s: %w", name, err)
		}
		log.Printf("[Detectors] ✅ %s ready", d.GetName())
		built = append(built, d)
	}

	if len(built) == 0 {
		return nil, nil, errors.New("no detectors configured")
	}
	return built, modelManager, nil
}
