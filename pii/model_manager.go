package pii

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// ModelLoader builds a detector from validated model files
type ModelLoader func(cfg ModelConfig) (detectors.Detector, error)

// ONNXModelLoader loads the ONNX token classification detector
func ONNXModelLoader(cfg ModelConfig) (detectors.Detector, error) {
	return detectors.NewDetector(detectors.DetectorNameONNXModel, map[string]interface{}{
		"model_path":     cfg.ModelPath,
		"tokenizer_path": cfg.TokenizerPath,
		"label_map_path": cfg.LabelMapPath,
	})
}

// loadedModel is one generation of the detector. inflight counts Detect
// calls still using it so a reload can close it only once they finish.
type loadedModel struct {
	detector detectors.Detector
	inflight sync.WaitGroup
}

// ModelManager manages the NER model lifecycle with thread-safe hot reload.
// It implements detectors.Detector so it can be one member of an ensemble;
// while unhealthy its Detect returns an error.
type ModelManager struct {
	mu             sync.RWMutex
	current        *loadedModel
	loader         ModelLoader
	modelDirectory string
	isHealthy      bool
	lastError      error
}

// ModelConfig holds paths to required model files
type ModelConfig struct {
	ModelPath     string
	TokenizerPath string
	LabelMapPath  string
}

// NewModelManager creates a new model manager and initializes with the given directory
func NewModelManager(directory string, loader ModelLoader) *ModelManager {
	if loader == nil {
		loader = ONNXModelLoader
	}
	mm := &ModelManager{
		loader:         loader,
		modelDirectory: directory,
		lastError:      errors.New("model not loaded"),
	}

	// Don't fail if model can't load, just mark as unhealthy
	if err := mm.ReloadModel(directory); err != nil {
		log.Printf("[ModelManager] Warning: Failed to load initial model: %v", err)
		log.Printf("[ModelManager] Model manager created but marked as unhealthy")
	}

	return mm
}

// GetName returns the name of the managed detector
func (mm *ModelManager) GetName() string {
	return detectors.DetectorNameONNXModel
}

// SupportedEntities returns the tags model labels are mapped onto
func (mm *ModelManager) SupportedEntities() []string {
	return detectors.ModelEntities()
}

// GetDetector returns the current detector in a thread-safe manner
func (mm *ModelManager) GetDetector() (detectors.Detector, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.isHealthy {
		return nil, fmt.Errorf("model is unhealthy: %w", mm.lastError)
	}

	if mm.current == nil {
		return nil, fmt.Errorf("no detector available")
	}

	return mm.current.detector, nil
}

// Detect runs the current model
func (mm *ModelManager) Detect(ctx context.Context, input detectors.DetectorInput) (detectors.DetectorOutput, error) {
	mm.mu.RLock()
	if !mm.isHealthy || mm.current == nil {
		err := mm.lastError
		mm.mu.RUnlock()
		return detectors.DetectorOutput{}, fmt.Errorf("%w: model is unhealthy: %v", detectors.ErrDetectorUnavailable, err)
	}
	model := mm.current
	model.inflight.Add(1)
	mm.mu.RUnlock()
	defer model.inflight.Done()

	return model.detector.Detect(ctx, input)
}

// ReloadModel reloads the model from the specified directory with validation
func (mm *ModelManager) ReloadModel(newDirectory string) error {
	log.Printf("[ModelManager] Reloading model from directory: %s", newDirectory)

	// Step 1: Validate directory structure
	config, err := mm.validateDirectory(newDirectory)
	if err != nil {
		mm.markUnhealthy(err)
		log.Printf("[ModelManager] Directory validation failed: %v", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	// Step 2: Attempt to load new detector (outside lock to minimize blocking)
	newDetector, err := mm.loader(*config)
	if err != nil {
		mm.markUnhealthy(err)
		log.Printf("[ModelManager] Failed to load model: %v", err)
		return fmt.Errorf("failed to load model: %w", err)
	}

	// Step 3: Run validation inference to ensure model works
	testInput := detectors.DetectorInput{Text: "Test with John Smith"}
	if _, err := newDetector.Detect(context.Background(), testInput); err != nil {
		if closeErr := newDetector.Close(); closeErr != nil {
			log.Printf("[ModelManager] Warning: failed to close failed detector: %v", closeErr)
		}
		mm.markUnhealthy(err)
		log.Printf("[ModelManager] Model validation inference failed: %v", err)
		return fmt.Errorf("model validation failed: %w", err)
	}

	// Step 4: Swap detectors atomically
	mm.mu.Lock()
	old := mm.current
	mm.current = &loadedModel{detector: newDetector}
	mm.modelDirectory = newDirectory
	mm.isHealthy = true
	mm.lastError = nil
	mm.mu.Unlock()

	log.Printf("[ModelManager] Model swap completed successfully")

	// Step 5: Close old detector once requests still using it are done
	if old != nil {
		go func() {
			old.inflight.Wait()
			if err := old.detector.Close(); err != nil {
				log.Printf("[ModelManager] Warning: failed to close old detector: %v", err)
			}
		}()
	}

	return nil
}

func (mm *ModelManager) markUnhealthy(err error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	// a failed reload keeps serving the previous model
	if mm.current != nil {
		mm.lastError = err
		return
	}
	mm.isHealthy = false
	mm.lastError = err
}

// IsHealthy returns whether the current model is healthy
func (mm *ModelManager) IsHealthy() bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.isHealthy
}

// GetLastError returns the last error encountered (if any)
func (mm *ModelManager) GetLastError() error {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.lastError
}

// GetInfo returns information about the current model state
func (mm *ModelManager) GetInfo() map[string]interface{} {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	info := map[string]interface{}{
		"directory": mm.modelDirectory,
		"healthy":   mm.isHealthy,
	}

	if mm.lastError != nil {
		info["error"] = mm.lastError.Error()
	} else {
		info["error"] = nil
	}

	return info
}

// validateDirectory checks that the directory exists and contains all required files
func (mm *ModelManager) validateDirectory(dir string) (*ModelConfig, error) {
	if dir == "" {
		return nil, fmt.Errorf("model directory is not configured")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	requiredFiles := []string{
		"model_quantized.onnx",
		"tokenizer.json",
		"label_mappings.json",
	}

	var missingFiles []string
	for _, filename := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, filename)); os.IsNotExist(err) {
			missingFiles = append(missingFiles, filename)
		}
	}

	if len(missingFiles) > 0 {
		return nil, fmt.Errorf("missing required files in directory: %v", missingFiles)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	return &ModelConfig{
		ModelPath:     filepath.Join(absDir, "model_quantized.onnx"),
		TokenizerPath: filepath.Join(absDir, "tokenizer.json"),
		LabelMapPath:  filepath.Join(absDir, "label_mappings.json"),
	}, nil
}

// Close closes the current detector and cleans up resources
func (mm *ModelManager) Close() error {
	mm.mu.Lock()
	current := mm.current
	mm.current = nil
	mm.isHealthy = false
	mm.lastError = errors.New("model manager closed")
	mm.mu.Unlock()

	if current != nil {
		log.Printf("[ModelManager] Closing current detector")
		current.inflight.Wait()
		if err := current.detector.Close(); err != nil {
			return fmt.Errorf("failed to close detector: %w", err)
		}
	}
	return nil
}
