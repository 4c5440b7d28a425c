package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ImageFile represents an uploaded image read into memory.
type ImageFile struct {
	Filename string
	Data     []byte
}

// formImage reads the required image from the named file field, using
// the first file when several are sent.
func formImage(form *multipart.Form, field string) (ImageFile, error) {
	image, ok, err := optionalFormImage(form, field)
	if err != nil {
		return ImageFile{}, err
	}
	if !ok {
		return ImageFile{}, fmt.Errorf("%s file is required", field)
	}
	return image, nil
}

// optionalFormImage reads an image from the named file field if one was
// sent.
func optionalFormImage(form *multipart.Form, field string) (ImageFile, bool, error) {
	if form == nil {
		return ImageFile{}, false, errors.New("missing form data")
	}

	files := form.File[field]
	if len(files) == 0 {
		return ImageFile{}, false, nil
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return ImageFile{}, false, fmt.Errorf("failed to read %s file", field)
	}

	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return ImageFile{}, false, err
	}
	if len(data) == 0 {
		return ImageFile{}, false, fmt.Errorf("%s file is empty", field)
	}

	return ImageFile{
		Filename: fileHeader.Filename,
		Data:     data,
	}, true, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
