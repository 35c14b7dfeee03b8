package backend

import "os"

// OS implements xorg.FileSystem against the host filesystem.
type OS struct{}

func (o *OS) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (o *OS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (o *OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (o *OS) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}
