//go:build onnx
// +build onnx

package backend

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

func initBackendEnvironment() error {
	if ort.IsInitialized() {
		return nil
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

func teardownBackendEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("destroy onnx runtime: %w", err)
	}
	return nil
}
