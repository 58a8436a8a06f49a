// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package accel detects the compute device available to the conversion
// engine. Detection runs once at process startup; the resulting value is
// immutable and passed explicitly into option building, so no hidden
// process-wide state is consulted per request.
package accel

import "os/exec"

// Device identifies the compute device the engine runs inference on.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Accelerator describes the detected compute device. FlashAttention is
// only meaningful on CUDA.
type Accelerator struct {
	Device         Device `json:"device" yaml:"device"`
	FlashAttention bool   `json:"flash_attention" yaml:"flash_attention"`
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

var defaultExec executor = osExecutor{}

const nvidiaSMI = "nvidia-smi"

// Detect probes for a usable CUDA device and falls back to CPU. CUDA
// counts as usable when nvidia-smi is on PATH and lists at least one GPU;
// detecting CUDA also turns on flash attention.
func Detect() Accelerator {
	return detect(defaultExec)
}

func detect(exec executor) Accelerator {
	if _, err := exec.LookPath(nvidiaSMI); err != nil {
		return Accelerator{Device: DeviceCPU}
	}
	if err := exec.RunSilent(nvidiaSMI, "-L"); err != nil {
		return Accelerator{Device: DeviceCPU}
	}
	return Accelerator{Device: DeviceCUDA, FlashAttention: true}
}
