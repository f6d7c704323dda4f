// Package clipboard shells out to the platform clipboard tool.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

// SelectCommand picks the clipboard writer for goos. lookPath is injected so
// tests can control which tools exist.
func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	var candidates []Command
	switch goos {
	case "darwin":
		candidates = []Command{{Path: "pbcopy"}}
	case "linux":
		candidates = []Command{
			{Path: "wl-copy"},
			{Path: "xclip", Args: []string{"-selection", "clipboard"}},
		}
	default:
		return Command{}, ErrToolNotFound
	}

	for _, c := range candidates {
		if path, err := lookPath(c.Path); err == nil {
			return Command{Path: path, Args: c.Args}, nil
		}
	}
	return Command{}, ErrToolNotFound
}

func Copy(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}
	if _, err := stdin.Write([]byte(text)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
