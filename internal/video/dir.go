package video

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/MeKo-Tech/platewatch/internal/utils"
)

// DirSource reads the images of a directory in lexical order, one frame
// per file.
type DirSource struct {
	paths []string
	next  int
}

// OpenDir lists the supported images in dir. A directory without images
// is an error.
func OpenDir(dir string) (*DirSource, error) {
	paths, err := utils.ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return &DirSource{paths: paths}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int { return len(s.paths) }

// Next implements Source.
func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++
	return utils.LoadImage(path)
}

// Close implements Source.
func (s *DirSource) Close() error {
	s.next = len(s.paths)
	return nil
}
