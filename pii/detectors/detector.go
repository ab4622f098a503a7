package pii

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	DetectorNameModel     = "model_detector"
	DetectorNameRegex     = "regex_detector"
	DetectorNameGazetteer = "gazetteer_detector"
	DetectorNameONNXModel = "onnx_model_detector"
)

// ErrDetectorUnavailable marks a detector that is configured but cannot
// serve requests right now, such as a model that failed to load.
var ErrDetectorUnavailable = errors.New("detector unavailable")

type Detector interface {
	GetName() string
	Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error)
	Close() error
}

// EntityLister is implemented by detectors that know up front which entity
// labels they can emit.
type EntityLister interface {
	SupportedEntities() []string
}

type NewDetectorFunc func(config map[string]interface{}) (Detector, error)

var (
	factoriesMu       sync.RWMutex
	detectorFactories = make(map[string]NewDetectorFunc)
)

func RegisterDetectorFactory(name string, factory NewDetectorFunc) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	detectorFactories[name] = factory
}

func NewDetector(name string, config map[string]interface{}) (Detector, error) {
	factoriesMu.RLock()
	factory, ok := detectorFactories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("detector factory not found for name: %s", name)
	}
	return factory(config)
}

// RegisteredDetectors returns the sorted names of all registered factories.
func RegisteredDetectors() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(detectorFactories))
	for name := range detectorFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDetectorFactory(DetectorNameModel, func(config map[string]interface{}) (Detector, error) {
		baseURL, ok := config["base_url"].(string)
		if !ok || baseURL == "" {
			return nil, fmt.Errorf("base_url is required for model detector")
		}
		timeout := 5 * time.Second
		if t, ok := config["timeout"].(time.Duration); ok && t > 0 {
			timeout = t
		}
		return NewModelDetector(baseURL, timeout), nil
	})

	RegisterDetectorFactory(DetectorNameRegex, func(config map[string]interface{}) (Detector, error) {
		return NewRegexDetector(PIIPatterns), nil
	})

	RegisterDetectorFactory(DetectorNameGazetteer, func(config map[string]interface{}) (Detector, error) {
		return NewGazetteerDetector(), nil
	})

	RegisterDetectorFactory(DetectorNameONNXModel, func(config map[string]interface{}) (Detector, error) {
		modelPath, ok := config["model_path"].(string)
		if !ok {
			return nil, fmt.Errorf("model_path is required for ONNX model detector")
		}
		tokenizerPath, ok := config["tokenizer_path"].(string)
		if !ok {
			return nil, fmt.Errorf("tokenizer_path is required for ONNX model detector")
		}
		labelMapPath, _ := config["label_map_path"].(string)
		return NewONNXModelDetectorSimple(modelPath, tokenizerPath, labelMapPath)
	})
}

func CloseDetector(detector Detector) error {
	return detector.Close()
}
