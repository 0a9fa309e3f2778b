package fsops

import "github.com/spf13/afero"

// FSDeleter implements Deleter on top of an afero filesystem
type FSDeleter struct {
	Fs afero.Fs
}

func (d FSDeleter) Remove(path string) error {
	return d.Fs.Remove(path)
}

func (d FSDeleter) RemoveAll(path string) error {
	return d.Fs.RemoveAll(path)
}
