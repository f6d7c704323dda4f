package clipboard

import (
	"errors"
	"testing"
)

func lookPathWith(available ...string) func(string) (string, error) {
	set := make(map[string]struct{}, len(available))
	for _, name := range available {
		set[name] = struct{}{}
	}
	return func(name string) (string, error) {
		if _, ok := set[name]; ok {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
}

func TestSelectCommand_Darwin(t *testing.T) {
	cmd, err := SelectCommand("darwin", lookPathWith("pbcopy"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Path != "/usr/bin/pbcopy" || len(cmd.Args) != 0 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestSelectCommand_LinuxPrefersWlCopy(t *testing.T) {
	cmd, err := SelectCommand("linux", lookPathWith("wl-copy", "xclip"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Path != "/usr/bin/wl-copy" {
		t.Fatalf("expected wl-copy, got %+v", cmd)
	}
}

func TestSelectCommand_LinuxFallsBackToXclip(t *testing.T) {
	cmd, err := SelectCommand("linux", lookPathWith("xclip"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Path != "/usr/bin/xclip" || len(cmd.Args) != 2 {
		t.Fatalf("expected xclip with selection args, got %+v", cmd)
	}
}

func TestSelectCommand_NoToolAvailable(t *testing.T) {
	if _, err := SelectCommand("linux", lookPathWith()); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if _, err := SelectCommand("windows", lookPathWith("clip")); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound for unsupported goos, got %v", err)
	}
}
