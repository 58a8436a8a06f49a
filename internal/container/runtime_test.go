// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"errors"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool   // "bin arg1 arg2" -> whether RunSilent succeeds
	outputs       map[string]string // "bin arg1 arg2" -> RunOutput stdout
	lastOutputCmd string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunOutput(name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	m.lastOutputCmd = key
	if out, ok := m.outputs[key]; ok {
		return out, nil
	}
	return "", errors.New("command failed: " + key)
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "neither available",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	const image = "docling-serve:latest"
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "docker image exists",
			mkRT: func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmds: map[string]bool{"docker image inspect " + image: true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmds:    map[string]bool{},
			wantErr: true,
		},
		{
			name: "podman image exists",
			mkRT: func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			cmds: map[string]bool{"podman image exists " + image: true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			cmds:    map[string]bool{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{runnableCmds: tt.cmds}
			rt := tt.mkRT(exec)
			err := rt.ImageExists(image)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), image) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPull(t *testing.T) {
	const image = "docling-serve:latest"

	exec := &mockExecutor{runnableCmds: map[string]bool{"docker pull " + image: true}}
	if err := newDockerRuntime(exec).Pull(image); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exec = &mockExecutor{runnableCmds: map[string]bool{}}
	if err := newDockerRuntime(exec).Pull(image); err == nil {
		t.Fatal("expected error when pull fails")
	}
}

func TestStartDetached(t *testing.T) {
	const image = "docling-serve:latest"
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		gpu     bool
		cmd     string
		output  string
		wantID  string
		wantErr bool
	}{
		{
			name:   "docker cpu",
			mkRT:   func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmd:    "docker run --rm -d -p 5001:5001 " + image,
			output: "abc123def456\n",
			wantID: "abc123def456",
		},
		{
			name:   "docker with gpu passthrough",
			mkRT:   func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			gpu:    true,
			cmd:    "docker run --rm -d -p 5001:5001 --gpus all " + image,
			output: "abc123\n",
			wantID: "abc123",
		},
		{
			name:   "podman with gpu passthrough",
			mkRT:   func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			gpu:    true,
			cmd:    "podman run --rm -d -p 5001:5001 --device nvidia.com/gpu=all " + image,
			output: "fed987\n",
			wantID: "fed987",
		},
		{
			name:    "start failure",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmd:     "",
			wantErr: true,
		},
		{
			name:    "empty container ID",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmd:     "docker run --rm -d -p 5001:5001 " + image,
			output:  "  \n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{outputs: map[string]string{}}
			if tt.cmd != "" {
				exec.outputs[tt.cmd] = tt.output
			}
			rt := tt.mkRT(exec)

			id, err := rt.StartDetached(image, 5001, 5001, tt.gpu)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error (ran %q): %v", exec.lastOutputCmd, err)
			}
			if id != tt.wantID {
				t.Errorf("container ID = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestStop(t *testing.T) {
	exec := &mockExecutor{runnableCmds: map[string]bool{"docker stop abc123": true}}
	if err := newDockerRuntime(exec).Stop("abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exec = &mockExecutor{runnableCmds: map[string]bool{}}
	if err := newDockerRuntime(exec).Stop("abc123"); err == nil {
		t.Fatal("expected error when stop fails")
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	docker := newDockerRuntime(exec)
	if docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	podman := newPodmanRuntime(exec)
	if podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
}
