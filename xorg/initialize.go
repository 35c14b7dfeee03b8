package xorg

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gitlab.com/nvctl/gpu-undervolt/internal/config"
)

const deviceConfigTemplate = `Section "OutputClass"
    Identifier "nvidia"
    MatchDriver "nvidia-drm"
    Driver "nvidia"
    Option "AllowEmptyInitialConfiguration"
    Option "Coolbits" "28"
    ModulePath "/usr/lib/x86_64-linux-gnu/nvidia/xorg"
EndSection
`

var (
	consoleOnlyRe = regexp.MustCompile(`(?m)^allowed_users=console`)
	anybodyRe     = regexp.MustCompile(`(?m)^allowed_users=anybody`)
	rootRightsRe  = regexp.MustCompile(`(?m)^needs_root_rights=yes`)
)

// Initializer patches the two host files clock offset control depends on:
// the Xwrapper permission file (display-server access for non-console
// users) and the Coolbits xorg snippet. A reboot is required before the
// changes take effect.
type Initializer struct {
	fs          FileSystem
	wrapperPath string
	devicePath  string
}

func NewInitializer(fs FileSystem) *Initializer {
	cfg := config.GetConfig()
	return &Initializer{
		fs:          fs,
		wrapperPath: cfg.Xorg.WrapperConfig,
		devicePath:  cfg.Xorg.DeviceConfig,
	}
}

// Initialized reports whether both host files are already in the required
// state.
func (i *Initializer) Initialized() (bool, error) {
	patch, err := i.wrapperNeedsPatch()
	if err != nil {
		return false, err
	}

	missing, err := i.deviceConfigMissing()
	if err != nil {
		return false, err
	}

	return !patch && !missing, nil
}

// Run brings both files into the required state, reporting each mutation
// to w. It is a pure no-op when the host is already initialized.
func (i *Initializer) Run(w io.Writer) (bool, error) {
	changed := false

	patch, err := i.wrapperNeedsPatch()
	if err != nil {
		return changed, err
	}

	if patch {
		err := i.patchWrapper()
		if err != nil {
			return changed, err
		}

		fmt.Fprintf(w, "modified %s\n", i.wrapperPath)
		fmt.Fprintln(w, "these modifications may weaken xorg security")
		changed = true
	}

	missing, err := i.deviceConfigMissing()
	if err != nil {
		return changed, err
	}

	if missing {
		err := i.fs.WriteFile(i.devicePath, []byte(deviceConfigTemplate), 0644)
		if err != nil {
			return changed, fmt.Errorf("cannot write %s: %w", i.devicePath, err)
		}

		fmt.Fprintf(w, "created %s\n", i.devicePath)
		changed = true
	}

	if changed {
		fmt.Fprintln(w, "some modifications happened, please reboot")
	} else {
		fmt.Fprintln(w, "did not do anything, system already initialized")
	}

	return changed, nil
}

func (i *Initializer) wrapperNeedsPatch() (bool, error) {
	content, err := i.readWrapper()
	if err != nil {
		return false, err
	}

	needs := consoleOnlyRe.MatchString(content) ||
		!anybodyRe.MatchString(content) ||
		!rootRightsRe.MatchString(content)

	return needs, nil
}

func (i *Initializer) deviceConfigMissing() (bool, error) {
	_, err := i.fs.Stat(i.devicePath)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}

	return false, err
}

// readWrapper treats a missing Xwrapper.config as empty: Debian only
// ships the file with xserver-xorg-legacy and the patch recreates every
// line it needs anyway.
func (i *Initializer) readWrapper() (string, error) {
	content, err := i.fs.ReadFile(i.wrapperPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("cannot read %s: %w", i.wrapperPath, err)
	}

	return string(content), nil
}

func (i *Initializer) patchWrapper() error {
	content, err := i.readWrapper()
	if err != nil {
		return err
	}

	err = i.backupWrapper(content)
	if err != nil {
		return err
	}

	content = consoleOnlyRe.ReplaceAllString(content, "#allowed_users=console")
	if !anybodyRe.MatchString(content) {
		content += "\nallowed_users=anybody"
	}
	if !rootRightsRe.MatchString(content) {
		content += "\nneeds_root_rights=yes"
	}

	err = i.fs.WriteFile(i.wrapperPath, []byte(content), 0644)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", i.wrapperPath, err)
	}

	zlog.Sugar().Infof("patched %s (backup at %s.bak)", i.wrapperPath, i.wrapperPath)

	return nil
}

// backupWrapper keeps a one-time copy of the original permission file
// next to it. An existing backup is never overwritten.
func (i *Initializer) backupWrapper(content string) error {
	backupPath := i.wrapperPath + ".bak"

	_, err := i.fs.Stat(backupPath)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	err = i.fs.WriteFile(backupPath, []byte(content), 0644)
	if err != nil {
		return fmt.Errorf("cannot back up %s: %w", i.wrapperPath, err)
	}

	return nil
}
