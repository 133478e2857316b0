// Package fileio provides the generation-output file tools. Paths are
// resolved against the environment's output root; a missing file on read is
// a structured failure, not an error.
package fileio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/tool"
)

const (
	WriteToolName = "write_file"
	ReadToolName  = "read_file"
)

// WriteArgs is the write_file input shape.
type WriteArgs struct {
	Path    string `json:"path" desc:"file path relative to the output directory"`
	Content string `json:"content" desc:"full file content to write"`
}

// WriteResult is the write_file output shape.
type WriteResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
}

// ReadArgs is the read_file input shape.
type ReadArgs struct {
	Path string `json:"path" desc:"file path relative to the output directory"`
}

// ReadResult is the read_file output shape.
type ReadResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewWrite builds the write_file tool.
func NewWrite(env *execenv.Environment) (tool.Tool, error) {
	if env == nil {
		return nil, fmt.Errorf("fileio: environment is nil")
	}
	return tool.NewFunction(WriteToolName, "Write a file under the output directory, creating parent directories as needed.",
		func(ctx context.Context, args WriteArgs) (WriteResult, error) {
			target, err := env.ResolvePath(args.Path)
			if err != nil {
				return WriteResult{}, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return WriteResult{}, fmt.Errorf("fileio: create dirs: %w", err)
			}
			if err := os.WriteFile(target, []byte(args.Content), 0o644); err != nil {
				return WriteResult{}, fmt.Errorf("fileio: write %q: %w", args.Path, err)
			}
			return WriteResult{Success: true, Path: args.Path, Bytes: len(args.Content)}, nil
		})
}

// NewRead builds the read_file tool.
func NewRead(env *execenv.Environment) (tool.Tool, error) {
	if env == nil {
		return nil, fmt.Errorf("fileio: environment is nil")
	}
	return tool.NewFunction(ReadToolName, "Read a previously written file from the output directory.",
		func(ctx context.Context, args ReadArgs) (ReadResult, error) {
			target, err := env.ResolvePath(args.Path)
			if err != nil {
				return ReadResult{}, err
			}
			raw, err := os.ReadFile(target)
			if errors.Is(err, fs.ErrNotExist) {
				return ReadResult{Success: false, Path: args.Path, Error: "file not found"}, nil
			}
			if err != nil {
				return ReadResult{}, fmt.Errorf("fileio: read %q: %w", args.Path, err)
			}
			return ReadResult{Success: true, Path: args.Path, Content: string(raw)}, nil
		})
}
