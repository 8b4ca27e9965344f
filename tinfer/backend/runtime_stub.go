//go:build !onnx
// +build !onnx

package backend

import "github.com/ZanzyTHEbar/text-inference/tinfer/common"

func initBackendEnvironment() error {
	return common.Wrapf(common.ErrBackendUnavailable, "runtime: build with -tags onnx")
}

func teardownBackendEnvironment() error { return nil }
