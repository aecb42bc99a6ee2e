package storage

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNotAnImage is returned when uploaded content is not a recognized image format.
var ErrNotAnImage = errors.New("upload is not an image")

// sniffLen is how much of the upload is buffered to detect its type.
const sniffLen = 3072

// SniffImage detects the content type of r from its leading bytes.
// The returned reader replays the sniffed prefix followed by the rest of r.
func SniffImage(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, err
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", nil, ErrNotAnImage
	}
	return mt.String(), mt.Extension(), io.MultiReader(bytes.NewReader(head), r), nil
}

// ObjectKey builds a collision-free key under prefix that keeps the detected extension.
func ObjectKey(prefix, ext string) string {
	return path.Join(prefix, uuid.New().String()+ext)
}
