// Package models resolves where the ONNX models and dictionaries live.
package models

import (
	"os"
	"path/filepath"
)

// Model file names.
const (
	// ObjectDetector finds riders, helmets and plates (YOLO export, 640x640).
	ObjectDetector = "helmet_plate_yolo.onnx"
	// TextDetector finds text lines inside a plate crop (PP-OCR DB export).
	TextDetector = "PP-OCRv5_mobile_det.onnx"
	// LineOrientation tells upright text lines from upside-down ones.
	LineOrientation = "pplcnet_x0_25_textline_ori.onnx"
	// PlateRecognizer reads a single text line (PP-OCR recognition export).
	PlateRecognizer = "PP-OCRv5_mobile_rec.onnx"
	// PlateDictionary lists the recognizer's output tokens, one per line.
	PlateDictionary = "en_dict.txt"
)

// Model type directories.
const (
	TypeDetection    = "detection"
	TypeRecognition  = "recognition"
	TypeLayout       = "layout"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is used when neither a flag nor the environment names one.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "PLATEWATCH_MODELS_DIR"

// ModelInfo describes a model the application can load.
type ModelInfo struct {
	Name        string
	Type        string
	Description string
	Filename    string
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GetModelsDir returns the models directory.
// Priority: 1. explicit modelsDir, 2. environment variable, 3. project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if root := findProjectRoot(); root != "" {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath prefers <dir>/<type>/<file> and falls back to a flat
// <dir>/<file> layout when the organized path does not exist.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(baseDir, filename)
}

// GetDetectionModelPath returns the object detector model path.
func GetDetectionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDetection, ObjectDetector)
}

// GetTextDetectionModelPath returns the text line detector model path.
func GetTextDetectionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDetection, TextDetector)
}

// GetLineOrientationModelPath returns the text line orientation model path.
func GetLineOrientationModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeLayout, LineOrientation)
}

// GetRecognitionModelPath returns the plate recognizer model path.
func GetRecognitionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeRecognition, PlateRecognizer)
}

// GetDictionaryPath returns the recognizer dictionary path.
func GetDictionaryPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDictionaries, PlateDictionary)
}

// ListAvailableModels describes the models used by the pipeline.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{Name: "object-detector", Type: TypeDetection, Description: "Rider, helmet and plate detector", Filename: ObjectDetector},
		{Name: "text-detector", Type: TypeDetection, Description: "Text line detector for plate crops", Filename: TextDetector},
		{Name: "line-orientation", Type: TypeLayout, Description: "Upright or upside-down text line classifier", Filename: LineOrientation},
		{Name: "plate-recognizer", Type: TypeRecognition, Description: "Single line text recognizer", Filename: PlateRecognizer},
		{Name: "plate-dictionary", Type: TypeDictionaries, Description: "Recognizer character set", Filename: PlateDictionary},
	}
}
