package pii

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/daulet/tokenizers"
	onnxruntime "github.com/yalue/onnxruntime_go"
)

const (
	maxSeqLen           = 512
	onnxConfidenceFloor = 0.5
)

// ONNXModelDetectorSimple implements Detector using a local ONNX token
// classification model
type ONNXModelDetectorSimple struct {
	mu           sync.Mutex
	tokenizer    *tokenizers.Tokenizer
	session      *onnxruntime.AdvancedSession
	inputTensor  *onnxruntime.Tensor[int64]
	maskTensor   *onnxruntime.Tensor[int64]
	outputTensor *onnxruntime.Tensor[float32]
	id2label     map[string]string
	numPIILabels int
	modelPath    string
}

// safeUintToInt safely converts a uint to int with bounds checking
// Returns maxInt if the value would overflow
func safeUintToInt(val uint) int {
	const maxInt = int(^uint(0) >> 1)
	if val <= uint(maxInt) {
		// #nosec G115 - Safe conversion with bounds checking
		return int(val)
	}
	return maxInt
}

type labelMappings struct {
	PII struct {
		ID2Label map[string]string `json:"id2label"`
		Label2ID map[string]int    `json:"label2id"`
	} `json:"pii"`
}

// NewONNXModelDetectorSimple creates a new ONNX model detector
func NewONNXModelDetectorSimple(modelPath, tokenizerPath, labelMapPath string) (*ONNXModelDetectorSimple, error) {
	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); libPath != "" {
		onnxruntime.SetSharedLibraryPath(libPath)
	}

	// Initialize ONNX Runtime environment only if not already initialized
	if !onnxruntime.IsInitialized() {
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
		}
	}

	tk, err := tokenizers.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	configData, err := os.ReadFile(labelMapPath)
	if err != nil {
		_ = tk.Close()
		return nil, fmt.Errorf("failed to read label mappings: %w", err)
	}

	var config labelMappings
	if err := json.Unmarshal(configData, &config); err != nil {
		_ = tk.Close()
		return nil, fmt.Errorf("failed to parse label mappings: %w", err)
	}

	numPIILabels := countLabels(config.PII.ID2Label)
	if numPIILabels == 0 {
		numPIILabels = len(config.PII.Label2ID)
	}
	if numPIILabels == 0 {
		_ = tk.Close()
		return nil, fmt.Errorf("label mappings in %s define no labels", labelMapPath)
	}
	log.Printf("[ONNX] Loaded %d PII labels from %s", numPIILabels, labelMapPath)

	// Session and tensors are created on first use
	return &ONNXModelDetectorSimple{
		tokenizer:    tk,
		id2label:     config.PII.ID2Label,
		numPIILabels: numPIILabels,
		modelPath:    modelPath,
	}, nil
}

// countLabels returns the highest numeric label id plus one, ignoring the
// "-100" ignore index.
func countLabels(id2label map[string]string) int {
	n := 0
	for idStr := range id2label {
		if idStr == "-100" {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil && id >= n {
			n = id + 1
		}
	}
	return n
}

// GetName returns the name of this detector
func (d *ONNXModelDetectorSimple) GetName() string {
	return DetectorNameONNXModel
}

// Detect processes the input and returns detected entities
func (d *ONNXModelDetectorSimple) Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error) {
	if err := ctx.Err(); err != nil {
		return DetectorOutput{}, err
	}

	// the session reuses one set of tensors
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		if err := d.initializeSession(); err != nil {
			return DetectorOutput{}, fmt.Errorf("failed to initialize session: %w", err)
		}
	}

	encoding := d.tokenizer.EncodeWithOptions(input.Text, true, tokenizers.WithReturnOffsets())
	tokenIDs := encoding.IDs
	offsets := encoding.Offsets
	if len(tokenIDs) > maxSeqLen {
		tokenIDs = tokenIDs[:maxSeqLen]
	}
	if len(offsets) > len(tokenIDs) {
		offsets = offsets[:len(tokenIDs)]
	}

	inputIDs := make([]int64, len(tokenIDs))
	attentionMask := make([]int64, len(tokenIDs))
	for i := range tokenIDs {
		inputIDs[i] = int64(tokenIDs[i])
		attentionMask[i] = 1
	}
	d.updateInputTensors(inputIDs, attentionMask)

	if err := d.session.Run(); err != nil {
		return DetectorOutput{}, fmt.Errorf("failed to run inference: %w", err)
	}

	spans := make([][2]int, len(offsets))
	for i, o := range offsets {
		spans[i] = [2]int{safeUintToInt(o[0]), safeUintToInt(o[1])}
	}
	entities := decodeTokenLabels(input, d.outputTensor.GetData(), d.numPIILabels, d.id2label, spans)

	return DetectorOutput{
		Text:     input.Text,
		Entities: entities,
	}, nil
}

// decodeTokenLabels turns per-token logits into entities. Consecutive
// tokens labelled B-X, I-X, I-X form one entity whose confidence is the
// running average of the token confidences.
func decodeTokenLabels(input DetectorInput, logits []float32, numLabels int, id2label map[string]string, offsets [][2]int) []Entity {
	entities := []Entity{}
	var current *Entity

	flush := func() {
		if current == nil {
			return
		}
		if canonical, ok := CanonicalLabel(current.Label); ok && input.Wants(canonical) {
			current.Label = canonical
			current.Text = input.Text[current.StartPos:current.EndPos]
			entities = append(entities, *current)
		}
		current = nil
	}

	for i, off := range offsets {
		end := (i + 1) * numLabels
		if end > len(logits) {
			break
		}
		// special tokens carry an empty offset
		if off[0] >= off[1] || off[1] > len(input.Text) {
			flush()
			continue
		}

		bestClass, confidence := softmaxArgmax(logits[i*numLabels : end])
		label, exists := id2label[fmt.Sprintf("%d", bestClass)]
		if !exists || confidence < onnxConfidenceFloor {
			label = "O"
		}

		isBeginning := strings.HasPrefix(label, "B-")
		isInside := strings.HasPrefix(label, "I-")
		baseLabel := strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")

		switch {
		case label == "O":
			flush()
		case isInside && current != nil && current.Label == baseLabel:
			current.EndPos = off[1]
			current.Confidence = (current.Confidence + confidence) / 2
		case isBeginning || isInside || current == nil || current.Label != baseLabel:
			flush()
			current = &Entity{
				Label:      baseLabel,
				StartPos:   off[0],
				EndPos:     off[1],
				Confidence: confidence,
				Source:     DetectorNameONNXModel,
			}
		default:
			current.EndPos = off[1]
		}
	}
	flush()

	return entities
}

// softmaxArgmax returns the index of the largest logit and its softmax
// probability.
func softmaxArgmax(logits []float32) (int, float64) {
	best := 0
	maxLogit := math.Inf(-1)
	for j, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
			best = j
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}
	if sum == 0 {
		return best, 0
	}
	return best, 1 / sum
}

// initializeSession initializes the ONNX session and tensors
func (d *ONNXModelDetectorSimple) initializeSession() error {
	batchSize := int64(1)

	inputShape := onnxruntime.NewShape(batchSize, maxSeqLen)
	inputTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, maxSeqLen))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	maskTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, maxSeqLen))
	if err != nil {
		_ = inputTensor.Destroy()
		return fmt.Errorf("failed to create mask tensor: %w", err)
	}

	outputShape := onnxruntime.NewShape(batchSize, maxSeqLen, int64(d.numPIILabels))
	outputTensor, err := onnxruntime.NewEmptyTensor[float32](outputShape)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = maskTensor.Destroy()
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := onnxruntime.NewAdvancedSession(d.modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"pii_logits"},
		[]onnxruntime.Value{inputTensor, maskTensor},
		[]onnxruntime.Value{outputTensor},
		nil)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = maskTensor.Destroy()
		_ = outputTensor.Destroy()
		return fmt.Errorf("failed to create session: %w", err)
	}

	d.session = session
	d.inputTensor = inputTensor
	d.maskTensor = maskTensor
	d.outputTensor = outputTensor

	return nil
}

// updateInputTensors updates the input tensors with new data
func (d *ONNXModelDetectorSimple) updateInputTensors(inputIDs, attentionMask []int64) {
	inputData := d.inputTensor.GetData()
	maskData := d.maskTensor.GetData()

	for i := range inputData {
		inputData[i] = 0
		maskData[i] = 0
	}

	copy(inputData, inputIDs)
	copy(maskData, attentionMask)
}

// Close implements the Detector interface. The ONNX Runtime environment is
// process-wide and stays initialized so a reloaded model can reuse it.
func (d *ONNXModelDetectorSimple) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error

	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy session: %w", err))
		}
		d.session = nil
	}
	if d.inputTensor != nil {
		if err := d.inputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy input tensor: %w", err))
		}
		d.inputTensor = nil
	}
	if d.maskTensor != nil {
		if err := d.maskTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy mask tensor: %w", err))
		}
		d.maskTensor = nil
	}
	if d.outputTensor != nil {
		if err := d.outputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy output tensor: %w", err))
		}
		d.outputTensor = nil
	}
	if d.tokenizer != nil {
		if err := d.tokenizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close tokenizer: %w", err))
		}
		d.tokenizer = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
