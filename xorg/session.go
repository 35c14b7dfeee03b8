package xorg

import (
	"fmt"
	"regexp"
	"strings"
)

const socketDir = "/tmp/.X11-unix"

var xauthorityRe = regexp.MustCompile(`/run/user/\d+/gdm/Xauthority`)

// Session identifies the display server credentials nvidia-settings needs
// when no graphical session environment is inherited.
type Session struct {
	Display    string
	Xauthority string
}

// Environ returns the variables to inject into nvidia-settings.
func (s *Session) Environ() []string {
	return []string{
		"DISPLAY=:" + s.Display,
		"XAUTHORITY=" + s.Xauthority,
	}
}

// DiscoverSession locates the active display socket and the gdm session
// credential file.
func DiscoverSession(fs FileSystem, procs ProcessLister) (*Session, error) {
	display, err := findDisplay(fs)
	if err != nil {
		return nil, err
	}

	xauthority, err := findXauthority(procs)
	if err != nil {
		return nil, err
	}

	zlog.Sugar().Debugf("using display :%s with xauthority %s", display, xauthority)

	return &Session{Display: display, Xauthority: xauthority}, nil
}

func findDisplay(fs FileSystem) (string, error) {
	entries, err := fs.ReadDir(socketDir)
	if err != nil {
		return "", fmt.Errorf("could not determine DISPLAY to use: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "X") && len(name) > 1 {
			return name[1:], nil
		}
	}

	return "", fmt.Errorf("could not determine DISPLAY to use: no socket under %s", socketDir)
}

func findXauthority(procs ProcessLister) (string, error) {
	cmdlines, err := procs.Cmdlines()
	if err != nil {
		return "", fmt.Errorf("cannot scan process list: %w", err)
	}

	for _, cmdline := range cmdlines {
		if match := xauthorityRe.FindString(cmdline); match != "" {
			return match, nil
		}
	}

	return "", fmt.Errorf("could not determine Xauthority to use, gdm not running?")
}
