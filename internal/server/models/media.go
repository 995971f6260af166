package models

import "io"

// UploadedFile is a file received from a client and destined for object
// storage.
type UploadedFile struct {
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
}
